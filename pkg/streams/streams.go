// Package streams implements a push-based stream core: cold Observables
// that, once subscribed, feed elements to a Subscriber one at a time,
// pacing themselves on the acknowledgement the subscriber returns for
// each element.
//
// The rules every participant plays by:
//
//   - Grammar: zero or more OnNext calls, then at most one of OnComplete
//     or OnError. Nothing after a terminal.
//   - Serialisation: calls on a single Observer never overlap; the next
//     OnNext waits for the previous element's ack to resolve.
//   - Back-pressure: an ack of Stop is a cancel signal. The producer
//     stops emitting and does not deliver a terminal event.
package streams

import (
	"errors"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
)

// ErrAPIContractViolation signals that a caller broke a usage rule, such
// as subscribing twice to a single-subscriber Observable.
var ErrAPIContractViolation = errors.New("streams: api contract violation")

// ErrTimeout is the terminal error delivered by Timeout when the source
// goes quiet for longer than the configured interval. TimeoutFallback
// switches to its backup instead and does not deliver it.
var ErrTimeout = errors.New("streams: timeout waiting for next element")

// Observer is the downstream endpoint of a stream. OnNext hands over one
// element and returns the ack that tells the producer whether (and when)
// it may send the next one.
//
// OnComplete and OnError must not panic; there is nowhere left for such
// a failure to go except the scheduler's failure sink.
type Observer[A any] interface {
	OnNext(a A) ack.Ack
	OnError(err error)
	OnComplete()
}

// Subscriber is an Observer bound to the Scheduler that any deferred
// work for this subscription - resuming after a pending ack, timers,
// batch yields - must run on.
type Subscriber[A any] interface {
	Observer[A]
	Scheduler() scheduler.Scheduler
}

// Observable is a cold producer: nothing happens until Subscribe, and
// each Subscribe starts an independent run of the sequence. The returned
// Cancelable is owned by the caller; cancelling it severs further
// delivery.
type Observable[A any] interface {
	Subscribe(sub Subscriber[A]) Cancelable
}

// Operator turns a subscriber for output elements into a subscriber for
// input elements. Operators allocate their per-subscription state inside
// this call; the returned subscriber owns that state exclusively.
type Operator[A, B any] func(down Subscriber[B]) Subscriber[A]

// Lift applies op between source and each downstream subscriber.
func Lift[A, B any](source Observable[A], op Operator[A, B]) Observable[B] {
	return liftedObservable[A, B]{source, op}
}

type liftedObservable[A, B any] struct {
	source Observable[A]
	op     Operator[A, B]
}

func (l liftedObservable[A, B]) Subscribe(down Subscriber[B]) Cancelable {
	return l.source.Subscribe(l.op(down))
}

// Create builds an Observable directly from its subscribe function. This
// is the unsafe path: fn is trusted to honour the grammar and the acks
// it receives.
func Create[A any](fn func(sub Subscriber[A]) Cancelable) Observable[A] {
	return createdObservable[A](fn)
}

type createdObservable[A any] func(sub Subscriber[A]) Cancelable

func (c createdObservable[A]) Subscribe(sub Subscriber[A]) Cancelable {
	return c(sub)
}

// NewSubscriber bundles callbacks and a scheduler into a Subscriber. Nil
// callbacks degrade to: ack Continue, drop the terminal on the floor.
func NewSubscriber[A any](
	sched scheduler.Scheduler,
	onNext func(A) ack.Ack,
	onError func(error),
	onComplete func(),
) Subscriber[A] {
	return &callbackSubscriber[A]{sched, onNext, onError, onComplete}
}

type callbackSubscriber[A any] struct {
	sched      scheduler.Scheduler
	onNext     func(A) ack.Ack
	onError    func(error)
	onComplete func()
}

func (s *callbackSubscriber[A]) OnNext(a A) ack.Ack {
	if s.onNext == nil {
		return ack.Continue
	}
	return s.onNext(a)
}

func (s *callbackSubscriber[A]) OnError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *callbackSubscriber[A]) OnComplete() {
	if s.onComplete != nil {
		s.onComplete()
	}
}

func (s *callbackSubscriber[A]) Scheduler() scheduler.Scheduler {
	return s.sched
}
