package streams

import "github.com/jakewins/streamcore/pkg/ack"

// Filter drops elements predicate rejects. Rejected elements are acked
// Continue immediately, without involving the downstream.
func Filter[A any](source Observable[A], predicate func(A) bool) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[A] {
		return &filterSubscriber[A]{opState[A]{down: down}, predicate}
	})
}

type filterSubscriber[A any] struct {
	opState[A]
	predicate func(A) bool
}

func (f *filterSubscriber[A]) OnNext(elem A) (result ack.Ack) {
	if f.terminated {
		return ack.Stop
	}
	streamingUserCode := true
	defer func() {
		if r := recover(); r != nil {
			result = f.handlePanic(streamingUserCode, asError(r))
		}
	}()

	keep := f.predicate(elem)
	streamingUserCode = false

	if !keep {
		return ack.Continue
	}
	return f.down.OnNext(elem)
}
