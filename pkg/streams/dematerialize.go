package streams

import (
	"fmt"

	"github.com/jakewins/streamcore/pkg/ack"
)

// Dematerialize collapses a stream of Notification values back into the
// events they describe. An inner OnError/OnComplete notification
// terminates the downstream and stops the source; the source's own
// terminal is only forwarded if no inner terminal got there first.
func Dematerialize[A any](source Observable[Notification[A]]) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[Notification[A]] {
		return &dematerializeSubscriber[A]{opState[A]{down: down}}
	})
}

type dematerializeSubscriber[A any] struct {
	opState[A]
}

func (d *dematerializeSubscriber[A]) OnNext(n Notification[A]) ack.Ack {
	if d.terminated {
		return ack.Stop
	}
	switch n.Kind {
	case KindNext:
		return d.down.OnNext(n.Value)
	case KindError:
		d.terminated = true
		d.down.OnError(n.Err)
		return ack.Stop
	case KindComplete:
		d.terminated = true
		d.down.OnComplete()
		return ack.Stop
	}
	d.terminated = true
	d.down.OnError(fmt.Errorf("%w: unknown notification kind %d", ErrAPIContractViolation, n.Kind))
	return ack.Stop
}

func (d *dematerializeSubscriber[A]) OnError(err error) {
	if d.terminated {
		// An error with no pipeline left to carry it.
		d.Scheduler().ReportFailure(err)
		return
	}
	d.terminated = true
	d.down.OnError(err)
}
