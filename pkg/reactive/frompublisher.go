package reactive

import (
	"fmt"
	"sync"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/streams"
)

// FromPublisher adapts a request-n Publisher into an ack-paced
// Observable. Demand is batched: the adapter requests the subscriber
// scheduler's recommended batch size up front and tops the window back
// up as elements are consumed, so a fast publisher is never throttled to
// one-at-a-time round trips. Elements the publisher pushes while the
// consumer is still chewing on a deferred ack are buffered; the buffer
// is bounded by the requested window, because a lawful publisher never
// exceeds its demand.
//
// Elements must be assignable to A; anything else ends the stream with
// an error.
func FromPublisher[A any](p Publisher) streams.Observable[A] {
	return streams.Create(func(sub streams.Subscriber[A]) streams.Cancelable {
		a := &publisherAdapter[A]{
			down:  sub,
			batch: sub.Scheduler().ExecutionModel().RecommendedBatchSize,
		}
		p.Subscribe(a)
		return streams.CancelFunc(a.cancel)
	})
}

type publisherAdapter[A any] struct {
	down  streams.Subscriber[A]
	batch int

	mu         sync.Mutex
	sub        Subscription
	queue      []A
	draining   bool
	canceled   bool
	terminated bool
	terminal   *streams.Notification[A]
}

func (a *publisherAdapter[A]) OnSubscribe(s Subscription) {
	a.mu.Lock()
	if a.canceled {
		a.mu.Unlock()
		s.Cancel()
		return
	}
	a.sub = s
	a.mu.Unlock()
	s.Request(a.batch)
}

func (a *publisherAdapter[A]) OnNext(v any) {
	elem, ok := v.(A)
	if !ok {
		a.fail(fmt.Errorf("%w: publisher emitted %T where %T was expected",
			streams.ErrAPIContractViolation, v, elem))
		return
	}

	a.mu.Lock()
	if a.canceled || a.terminated {
		a.mu.Unlock()
		return
	}
	a.queue = append(a.queue, elem)
	start := !a.draining
	if start {
		a.draining = true
	}
	a.mu.Unlock()

	if start {
		a.down.Scheduler().Execute(a.drain)
	}
}

func (a *publisherAdapter[A]) OnError(err error) {
	n := streams.ErrorNotification[A](err)
	a.deliverTerminal(&n)
}

func (a *publisherAdapter[A]) OnComplete() {
	n := streams.CompleteNotification[A]()
	a.deliverTerminal(&n)
}

// deliverTerminal hands the publisher's terminal to the downstream, or
// parks it behind any still-queued elements.
func (a *publisherAdapter[A]) deliverTerminal(n *streams.Notification[A]) {
	a.mu.Lock()
	if a.canceled || a.terminated || a.terminal != nil {
		a.mu.Unlock()
		return
	}
	if a.draining || len(a.queue) > 0 {
		a.terminal = n
		a.mu.Unlock()
		return
	}
	a.terminated = true
	a.mu.Unlock()

	a.emitTerminal(n)
}

func (a *publisherAdapter[A]) emitTerminal(n *streams.Notification[A]) {
	if n.Kind == streams.KindError {
		a.down.OnError(n.Err)
	} else {
		a.down.OnComplete()
	}
}

// drain feeds queued elements to the downstream one ack at a time. Only
// one drain is ever in flight, which is what keeps downstream calls
// serialised no matter how the publisher delivered.
func (a *publisherAdapter[A]) drain() {
	for {
		a.mu.Lock()
		if a.canceled {
			a.draining = false
			a.mu.Unlock()
			return
		}
		if len(a.queue) == 0 {
			a.draining = false
			terminal := a.terminal
			if terminal != nil {
				a.terminal = nil
				a.terminated = true
			}
			a.mu.Unlock()
			if terminal != nil {
				a.emitTerminal(terminal)
			}
			return
		}
		elem := a.queue[0]
		a.queue = a.queue[1:]
		sub := a.sub
		a.mu.Unlock()

		result := a.down.OnNext(elem)
		if result.IsDeferred() {
			result.Notify(func(resolved ack.Ack, err error) {
				a.down.Scheduler().Execute(func() {
					a.resume(resolved, err, sub)
				})
			})
			return
		}
		if result.IsStop() {
			a.stopUpstream()
			return
		}
		// Consumed one: top the demand window back up.
		if sub != nil {
			sub.Request(1)
		}
	}
}

func (a *publisherAdapter[A]) resume(resolved ack.Ack, err error, sub Subscription) {
	switch {
	case err != nil:
		a.fail(err)
	case resolved.IsStop():
		a.stopUpstream()
	default:
		if sub != nil {
			sub.Request(1)
		}
		a.drain()
	}
}

// fail ends the stream with err, cancelling the publisher side.
func (a *publisherAdapter[A]) fail(err error) {
	a.mu.Lock()
	if a.canceled || a.terminated {
		a.mu.Unlock()
		a.down.Scheduler().ReportFailure(err)
		return
	}
	a.terminated = true
	a.draining = false
	sub := a.sub
	a.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	a.down.OnError(err)
}

func (a *publisherAdapter[A]) stopUpstream() {
	a.mu.Lock()
	a.terminated = true
	a.draining = false
	sub := a.sub
	a.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

func (a *publisherAdapter[A]) cancel() {
	a.mu.Lock()
	if a.canceled {
		a.mu.Unlock()
		return
	}
	a.canceled = true
	sub := a.sub
	a.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}
