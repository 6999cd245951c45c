package streams

import "github.com/jakewins/streamcore/pkg/ack"

// Drop skips the first n elements, acking them Continue without touching
// the downstream, then lets everything else through unchanged.
func Drop[A any](source Observable[A], n int) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[A] {
		return &dropSubscriber[A]{opState[A]{down: down}, n}
	})
}

type dropSubscriber[A any] struct {
	opState[A]
	remaining int
}

func (d *dropSubscriber[A]) OnNext(elem A) ack.Ack {
	if d.terminated {
		return ack.Stop
	}
	if d.remaining > 0 {
		d.remaining--
		return ack.Continue
	}
	return d.down.OnNext(elem)
}
