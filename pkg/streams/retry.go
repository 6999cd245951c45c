package streams

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
)

// The retry family intercepts the source's OnError and, policy
// permitting, re-subscribes to the source instead of forwarding the
// error. Elements seen before the error are always forwarded; only the
// terminal error is up for negotiation. Each attempt is a full fresh
// subscription with its own state and handle, chained so that cancelling
// the outer handle cancels whichever attempt is live.

// retryDecider is the per-subscription policy state: given the error
// that ended an attempt, how long to wait before the next attempt and
// whether to make one at all.
type retryDecider func(err error) (delay time.Duration, retry bool)

// Retry re-subscribes on error up to times times; the error that
// exhausts the budget is forwarded downstream.
func Retry[A any](source Observable[A], times int) Observable[A] {
	return retryObservable[A]{source, func() retryDecider {
		remaining := times
		return func(error) (time.Duration, bool) {
			if remaining <= 0 {
				return 0, false
			}
			remaining--
			return 0, true
		}
	}}
}

// RetryUnlimited re-subscribes on every error. Meant for sources whose
// errors are expected to be transient; there is no escape hatch other
// than cancelling.
func RetryUnlimited[A any](source Observable[A]) Observable[A] {
	return retryObservable[A]{source, func() retryDecider {
		return func(error) (time.Duration, bool) {
			return 0, true
		}
	}}
}

// RetryIf re-subscribes while predicate accepts the error; the first
// rejected error is forwarded.
func RetryIf[A any](source Observable[A], predicate func(error) bool) Observable[A] {
	return retryObservable[A]{source, func() retryDecider {
		return func(err error) (time.Duration, bool) {
			return 0, predicate(err)
		}
	}}
}

// RetryWithBackoff delays each re-subscription by the next interval from
// a backoff policy, scheduled on the subscription's scheduler rather
// than by blocking. newBackOff is called once per outer subscription so
// policies carry their own state (backoff.NewExponentialBackOff gives
// the usual exponential-with-jitter behaviour); the policy returning
// backoff.Stop forwards the error.
func RetryWithBackoff[A any](source Observable[A], newBackOff func() backoff.BackOff) Observable[A] {
	return retryObservable[A]{source, func() retryDecider {
		policy := newBackOff()
		return func(error) (time.Duration, bool) {
			d := policy.NextBackOff()
			if d == backoff.Stop {
				return 0, false
			}
			return d, true
		}
	}}
}

type retryObservable[A any] struct {
	source    Observable[A]
	newPolicy func() retryDecider
}

func (o retryObservable[A]) Subscribe(down Subscriber[A]) Cancelable {
	run := &retryRun[A]{
		source: o.source,
		down:   down,
		decide: o.newPolicy(),
		serial: NewSerialCancelable(),
	}
	run.subscribe()
	return run.serial
}

type retryRun[A any] struct {
	source Observable[A]
	down   Subscriber[A]
	decide retryDecider
	serial *SerialCancelable
}

func (r *retryRun[A]) subscribe() {
	r.serial.Set(r.source.Subscribe(&retryAttempt[A]{run: r}))
}

// retryAttempt is the subscriber for one subscription attempt. A fresh
// one is made per attempt so attempt-local state never bleeds across
// re-subscriptions.
type retryAttempt[A any] struct {
	run        *retryRun[A]
	terminated bool
}

func (a *retryAttempt[A]) Scheduler() scheduler.Scheduler {
	return a.run.down.Scheduler()
}

func (a *retryAttempt[A]) OnNext(elem A) ack.Ack {
	if a.terminated || a.run.serial.IsCanceled() {
		return ack.Stop
	}
	return a.run.down.OnNext(elem)
}

func (a *retryAttempt[A]) OnComplete() {
	if a.terminated {
		return
	}
	a.terminated = true
	a.run.down.OnComplete()
}

func (a *retryAttempt[A]) OnError(err error) {
	if a.terminated {
		return
	}
	a.terminated = true
	run := a.run
	if run.serial.IsCanceled() {
		return
	}

	delay, retry := run.decide(err)
	if !retry {
		run.down.OnError(err)
		return
	}
	resubscribe := func() {
		if !run.serial.IsCanceled() {
			run.subscribe()
		}
	}
	if delay > 0 {
		run.down.Scheduler().AfterFunc(delay, resubscribe)
		return
	}
	run.down.Scheduler().Execute(resubscribe)
}
