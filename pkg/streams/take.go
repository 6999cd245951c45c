package streams

import "github.com/jakewins/streamcore/pkg/ack"

// Take passes through the first n elements, then completes the
// downstream and stops the source. Take(0) completes as soon as the
// source produces anything at all.
func Take[A any](source Observable[A], n int) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[A] {
		return &takeSubscriber[A]{opState[A]{down: down}, n}
	})
}

type takeSubscriber[A any] struct {
	opState[A]
	remaining int
}

func (t *takeSubscriber[A]) OnNext(elem A) ack.Ack {
	if t.terminated {
		return ack.Stop
	}
	if t.remaining <= 0 {
		t.terminated = true
		t.down.OnComplete()
		return ack.Stop
	}
	t.remaining--
	if t.remaining > 0 {
		return t.down.OnNext(elem)
	}

	// Last element we will accept: deliver it, complete once its ack
	// resolves, and tell the source we are done.
	t.terminated = true
	t.emitLast(elem)
	return ack.Stop
}
