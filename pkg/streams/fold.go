package streams

import "github.com/jakewins/streamcore/pkg/ack"

// FoldLeft accumulates every element into a state seeded by initial and
// emits the single final state when the source completes. Unlike Reduce
// there is an identity, so an empty source emits initial() and
// completes.
//
// initial runs at subscribe time. If it panics the subscription fails
// immediately with that error and nothing upstream is started.
func FoldLeft[A, R any](source Observable[A], initial func() R, f func(R, A) R) Observable[R] {
	return foldObservable[A, R]{source, initial, f}
}

type foldObservable[A, R any] struct {
	source  Observable[A]
	initial func() R
	f       func(R, A) R
}

func (o foldObservable[A, R]) Subscribe(down Subscriber[R]) Cancelable {
	var seed R
	if err := runProtected(func() { seed = o.initial() }); err != nil {
		down.OnError(err)
		return Done
	}
	return o.source.Subscribe(&foldSubscriber[A, R]{
		opState: opState[R]{down: down},
		f:       o.f,
		state:   seed,
	})
}

type foldSubscriber[A, R any] struct {
	opState[R]
	f     func(R, A) R
	state R
}

func (s *foldSubscriber[A, R]) OnNext(elem A) (result ack.Ack) {
	if s.terminated {
		return ack.Stop
	}
	streamingUserCode := true
	defer func() {
		if r := recover(); r != nil {
			result = s.handlePanic(streamingUserCode, asError(r))
		}
	}()

	s.state = s.f(s.state, elem)
	streamingUserCode = false

	return ack.Continue
}

func (s *foldSubscriber[A, R]) OnComplete() {
	if s.terminated {
		return
	}
	s.terminated = true
	s.emitLast(s.state)
}

// runProtected invokes fn and converts a panic into a returned error.
func runProtected(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = asError(r)
		}
	}()
	fn()
	return nil
}
