package streams_test

import (
	"testing"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/scheduler/schedtest"
	"github.com/jakewins/streamcore/pkg/streams"
)

// schedOf builds the deterministic scheduler a test drives, and asserts
// at teardown that the subscription left no work behind.
func schedOf(t *testing.T) *schedtest.Scheduler {
	t.Helper()
	sched := schedtest.New(16)
	t.Cleanup(func() {
		if !sched.IsQuiescent() {
			t.Errorf("scheduler not quiescent at teardown: %d tasks pending", sched.Pending())
		}
	})
	return sched
}

// recorder is the downstream used by most tests: it records everything
// it sees and answers OnNext with a scripted ack, defaulting to
// Continue. It also checks the grammar as it goes - events after a
// terminal land in violations instead of the normal slices.
type recorder[A any] struct {
	sched *schedtest.Scheduler

	elems      []A
	errs       []error
	completes  int
	violations int

	// nextAck, when set, decides the ack for each element.
	nextAck func(elem A) ack.Ack
}

func newRecorder[A any](sched *schedtest.Scheduler) *recorder[A] {
	return &recorder[A]{sched: sched}
}

func (r *recorder[A]) terminated() bool {
	return len(r.errs) > 0 || r.completes > 0
}

func (r *recorder[A]) OnNext(elem A) ack.Ack {
	if r.terminated() {
		r.violations++
		return ack.Stop
	}
	r.elems = append(r.elems, elem)
	if r.nextAck != nil {
		return r.nextAck(elem)
	}
	return ack.Continue
}

func (r *recorder[A]) OnError(err error) {
	if r.terminated() {
		r.violations++
		return
	}
	r.errs = append(r.errs, err)
}

func (r *recorder[A]) OnComplete() {
	if r.terminated() {
		r.violations++
		return
	}
	r.completes++
}

func (r *recorder[A]) Scheduler() scheduler.Scheduler {
	return r.sched
}

// emitThenError is a cold source that delivers items and then fails. It
// honours Stop but, being a test stub, assumes immediate acks.
func emitThenError[A any](items []A, err error) streams.Observable[A] {
	return streams.Create(func(sub streams.Subscriber[A]) streams.Cancelable {
		sub.Scheduler().Execute(func() {
			for _, item := range items {
				if sub.OnNext(item).IsStop() {
					return
				}
			}
			sub.OnError(err)
		})
		return streams.Done
	})
}

// stopTracking wraps a source and records the acks its subscriber hands
// back upstream, so tests can assert the producer saw Stop.
type ackLog struct {
	acks []ack.Ack
}

func (l *ackLog) sawStop() bool {
	for _, a := range l.acks {
		if a.IsStop() {
			return true
		}
	}
	return false
}

func stopTracking[A any](source streams.Observable[A], log *ackLog) streams.Observable[A] {
	return streams.Lift(source, func(down streams.Subscriber[A]) streams.Subscriber[A] {
		return streams.NewSubscriber(down.Scheduler(),
			func(elem A) ack.Ack {
				a := down.OnNext(elem)
				log.acks = append(log.acks, a)
				return a
			},
			down.OnError,
			down.OnComplete,
		)
	})
}
