package streams

import "github.com/jakewins/streamcore/pkg/ack"

// Reduce folds the source left-to-right with f and emits the single
// result when the source completes - but only if f was actually applied,
// which takes at least two elements. A source of zero or one elements
// completes without emitting: with no identity to start from, one
// element never witnesses an application of f.
func Reduce[A any](source Observable[A], f func(A, A) A) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[A] {
		return &reduceSubscriber[A]{opState: opState[A]{down: down}, f: f}
	})
}

type reduceSubscriber[A any] struct {
	opState[A]
	f        func(A, A) A
	state    A
	hasFirst bool
	applied  bool
}

func (r *reduceSubscriber[A]) OnNext(elem A) (result ack.Ack) {
	if r.terminated {
		return ack.Stop
	}
	if !r.hasFirst {
		r.hasFirst = true
		r.state = elem
		return ack.Continue
	}

	streamingUserCode := true
	defer func() {
		if rec := recover(); rec != nil {
			result = r.handlePanic(streamingUserCode, asError(rec))
		}
	}()

	r.state = r.f(r.state, elem)
	r.applied = true
	streamingUserCode = false

	return ack.Continue
}

func (r *reduceSubscriber[A]) OnComplete() {
	if r.terminated {
		return
	}
	r.terminated = true
	if r.applied {
		r.emitLast(r.state)
		return
	}
	r.down.OnComplete()
}
