package streams

import "github.com/jakewins/streamcore/pkg/ack"

// Materialize reifies every event of the source into a Notification
// value. Terminal events become one final OnNext(notification) followed
// by OnComplete; Materialize itself never signals OnError, which is what
// makes Dematerialize its exact inverse.
func Materialize[A any](source Observable[A]) Observable[Notification[A]] {
	return Lift(source, func(down Subscriber[Notification[A]]) Subscriber[A] {
		return &materializeSubscriber[A]{opState[Notification[A]]{down: down}}
	})
}

type materializeSubscriber[A any] struct {
	opState[Notification[A]]
}

func (m *materializeSubscriber[A]) OnNext(elem A) ack.Ack {
	if m.terminated {
		return ack.Stop
	}
	return m.down.OnNext(NextNotification(elem))
}

func (m *materializeSubscriber[A]) OnError(err error) {
	if m.terminated {
		return
	}
	m.terminated = true
	m.emitLast(ErrorNotification[A](err))
}

func (m *materializeSubscriber[A]) OnComplete() {
	if m.terminated {
		return
	}
	m.terminated = true
	m.emitLast(CompleteNotification[A]())
}
