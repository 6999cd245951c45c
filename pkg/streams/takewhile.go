package streams

import "github.com/jakewins/streamcore/pkg/ack"

// TakeWhile emits elements as long as predicate accepts them. The first
// rejected element ends the stream: with inclusive set it is still
// delivered before completion, otherwise it is discarded. Either way the
// source receives Stop for it.
func TakeWhile[A any](source Observable[A], predicate func(A) bool, inclusive bool) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[A] {
		return &takeWhileSubscriber[A]{opState[A]{down: down}, predicate, inclusive}
	})
}

type takeWhileSubscriber[A any] struct {
	opState[A]
	predicate func(A) bool
	inclusive bool
}

func (t *takeWhileSubscriber[A]) OnNext(elem A) (result ack.Ack) {
	if t.terminated {
		return ack.Stop
	}
	streamingUserCode := true
	defer func() {
		if r := recover(); r != nil {
			result = t.handlePanic(streamingUserCode, asError(r))
		}
	}()

	keep := t.predicate(elem)
	streamingUserCode = false

	if keep {
		return t.down.OnNext(elem)
	}

	t.terminated = true
	if t.inclusive {
		t.emitLast(elem)
	} else {
		t.down.OnComplete()
	}
	return ack.Stop
}
