package streams

import (
	"fmt"
	"sync/atomic"

	"github.com/jakewins/streamcore/pkg/ack"
)

// Iterator is the pull side of FromIterator: Next returns the next
// element and whether one existed. A panic out of Next terminates the
// subscription with that error.
type Iterator[A any] interface {
	Next() (A, bool)
}

// Outcome tells a finaliser how its subscription ended.
type Outcome int

const (
	// OutcomeCompleted - the iterator ran dry and the stream completed.
	OutcomeCompleted Outcome = iota
	// OutcomeErrored - the subscription is terminating with an error.
	OutcomeErrored
	// OutcomeCanceled - the downstream stopped or the handle was
	// cancelled before the iterator ran dry.
	OutcomeCanceled
)

// Finalizer releases whatever the acquisition opened. cause is the
// error for OutcomeErrored, nil otherwise. A non-nil return (or a
// panic) counts as the finaliser itself failing.
type Finalizer func(outcome Outcome, cause error) error

// Resource is a bracketed acquisition: it opens the underlying thing and
// hands back the iterator over it together with the finaliser that
// closes it.
type Resource[A any] func() (Iterator[A], Finalizer, error)

// FromIterator builds an Observable from a bracketed iterator
// acquisition. The contract it keeps:
//
//   - the finaliser runs exactly once per subscription, whatever the
//     termination reason: exhaustion, downstream Stop, a panicking
//     consumer, external cancellation, or the finaliser's own failure
//   - when an ack comes back deferred, nothing further is produced and
//     finalisation waits until that ack resolves
//   - a finaliser failure while the normal terminal is still pending
//     becomes the stream's error; after the downstream already gave up
//     it can only go to the scheduler's failure sink
//   - single subscriber: a second Subscribe fails with
//     ErrAPIContractViolation
func FromIterator[A any](acquire Resource[A]) Observable[A] {
	return &iteratorObservable[A]{acquire: acquire}
}

type iteratorObservable[A any] struct {
	acquire    Resource[A]
	subscribed atomic.Bool
}

func (o *iteratorObservable[A]) Subscribe(sub Subscriber[A]) Cancelable {
	if !o.subscribed.CompareAndSwap(false, true) {
		sub.OnError(fmt.Errorf("%w: FromIterator supports a single subscriber", ErrAPIContractViolation))
		return Done
	}

	var it Iterator[A]
	var fin Finalizer
	var acquireErr error
	if err := runProtected(func() { it, fin, acquireErr = o.acquire() }); err != nil {
		acquireErr = err
	}
	if acquireErr != nil {
		sub.OnError(acquireErr)
		return Done
	}

	cancel := NewBoolCancelable()
	run := &iteratorRun[A]{sub: sub, it: it, fin: fin, cancel: cancel}
	sub.Scheduler().Execute(run.loop)
	return cancel
}

// iteratorRun is the per-subscription emission state machine. All of its
// methods run inside scheduler tasks, of which the subscription has at
// most one in flight, so the fields need no locking; Cancel only ever
// flips the flag the loop polls.
type iteratorRun[A any] struct {
	sub       Subscriber[A]
	it        Iterator[A]
	fin       Finalizer
	cancel    *BoolCancelable
	finalized bool
}

func (r *iteratorRun[A]) loop() {
	batch := r.sub.Scheduler().ExecutionModel().RecommendedBatchSize
	for {
		if r.cancel.IsCanceled() {
			r.finalizeQuietly()
			return
		}

		var elem A
		var ok bool
		if err := runProtected(func() { elem, ok = r.it.Next() }); err != nil {
			r.terminate(err)
			return
		}
		if !ok {
			// Finalise before signalling, so a failing finaliser can
			// still become the terminal error.
			if ferr := r.finalize(OutcomeCompleted, nil); ferr != nil {
				r.sub.OnError(ferr)
			} else {
				r.sub.OnComplete()
			}
			return
		}

		var a ack.Ack
		if err := runProtected(func() { a = r.sub.OnNext(elem) }); err != nil {
			r.terminate(err)
			return
		}

		if a.IsDeferred() {
			a.Notify(r.resume)
			return
		}
		if a.IsStop() {
			r.finalizeQuietly()
			return
		}

		batch--
		if batch <= 0 {
			r.sub.Scheduler().Execute(r.loop)
			return
		}
	}
}

// resume continues after a deferred ack settles. The continuation is
// pushed back through the scheduler so production stays on scheduler
// tasks no matter which goroutine resolved the ack.
func (r *iteratorRun[A]) resume(resolved ack.Ack, err error) {
	r.sub.Scheduler().Execute(func() {
		switch {
		case r.cancel.IsCanceled():
			r.finalizeQuietly()
		case err != nil:
			r.terminate(err)
		case resolved.IsStop():
			r.finalizeQuietly()
		default:
			r.loop()
		}
	})
}

// terminate ends the subscription with cause. The finaliser runs first;
// if it also fails, cause still wins downstream and the finaliser's
// error goes out-of-band.
func (r *iteratorRun[A]) terminate(cause error) {
	if ferr := r.finalize(OutcomeErrored, cause); ferr != nil {
		r.sub.Scheduler().ReportFailure(ferr)
	}
	r.sub.OnError(cause)
}

// finalizeQuietly is the Stop/cancel path: the downstream already gave
// up, so a failing finaliser has nowhere to go but the failure sink.
func (r *iteratorRun[A]) finalizeQuietly() {
	if ferr := r.finalize(OutcomeCanceled, nil); ferr != nil {
		r.sub.Scheduler().ReportFailure(ferr)
	}
}

func (r *iteratorRun[A]) finalize(outcome Outcome, cause error) error {
	if r.finalized {
		return nil
	}
	r.finalized = true
	if r.fin == nil {
		return nil
	}
	var ferr error
	if p := runProtected(func() { ferr = r.fin(outcome, cause) }); p != nil {
		ferr = p
	}
	return ferr
}

// SliceIterator adapts a slice to Iterator, mostly for wiring fixed data
// into FromIterator.
func SliceIterator[A any](items []A) Iterator[A] {
	return &sliceIterator[A]{items: items}
}

type sliceIterator[A any] struct {
	items []A
	index int
}

func (s *sliceIterator[A]) Next() (A, bool) {
	if s.index >= len(s.items) {
		var zero A
		return zero, false
	}
	elem := s.items[s.index]
	s.index++
	return elem, true
}
