package streams

import "github.com/jakewins/streamcore/pkg/ack"

// Map transforms every element with selector. A panic out of selector
// terminates the stream with that error.
func Map[A, B any](source Observable[A], selector func(A) B) Observable[B] {
	return Lift(source, func(down Subscriber[B]) Subscriber[A] {
		return &mapSubscriber[A, B]{opState[B]{down: down}, selector}
	})
}

type mapSubscriber[A, B any] struct {
	opState[B]
	selector func(A) B
}

func (m *mapSubscriber[A, B]) OnNext(elem A) (result ack.Ack) {
	if m.terminated {
		return ack.Stop
	}
	streamingUserCode := true
	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(streamingUserCode, asError(r))
		}
	}()

	mapped := m.selector(elem)
	streamingUserCode = false

	return m.down.OnNext(mapped)
}
