package streams_test

import (
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakewins/streamcore/pkg/streams"
)

// flakySource fails with err until failures attempts have happened, then
// emits items and completes. Cold: every subscription is a fresh attempt.
type flakySource struct {
	failures int
	err      error
	items    []int

	attempts int
}

func (f *flakySource) observable() streams.Observable[int] {
	return streams.Create(func(sub streams.Subscriber[int]) streams.Cancelable {
		f.attempts++
		attempt := f.attempts
		sub.Scheduler().Execute(func() {
			if attempt <= f.failures {
				sub.OnError(f.err)
				return
			}
			for _, item := range f.items {
				if sub.OnNext(item).IsStop() {
					return
				}
			}
			sub.OnComplete()
		})
		return streams.Done
	})
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	src := &flakySource{failures: 2, err: errors.New("transient"), items: []int{1, 2}}

	streams.Retry(src.observable(), 3).Subscribe(down)
	sched.RunAll()

	assert.Equal(t, []int{1, 2}, down.elems)
	assert.Equal(t, 1, down.completes)
	assert.Empty(t, down.errs)
	assert.Equal(t, 3, src.attempts)
}

func TestRetryForwardsTheErrorOnceTheBudgetIsSpent(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	boom := errors.New("permanent")
	src := &flakySource{failures: 100, err: boom}

	streams.Retry(src.observable(), 2).Subscribe(down)
	sched.RunAll()

	require.Len(t, down.errs, 1)
	assert.ErrorIs(t, down.errs[0], boom)
	assert.Equal(t, 3, src.attempts, "original attempt plus two retries")
}

func TestRetryForwardsElementsSeenBeforeTheError(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	boom := errors.New("mid-stream")

	attempts := 0
	source := streams.Create(func(sub streams.Subscriber[int]) streams.Cancelable {
		attempts++
		attempt := attempts
		sub.Scheduler().Execute(func() {
			sub.OnNext(attempt * 10)
			if attempt == 1 {
				sub.OnError(boom)
				return
			}
			sub.OnComplete()
		})
		return streams.Done
	})

	streams.Retry(source, 1).Subscribe(down)
	sched.RunAll()

	// The element from the failed attempt is not un-sent.
	assert.Equal(t, []int{10, 20}, down.elems)
	assert.Equal(t, 1, down.completes)
}

func TestRetryIfConsultsThePredicate(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	transient := errors.New("transient")
	permanent := errors.New("permanent")

	attempts := 0
	source := streams.Create(func(sub streams.Subscriber[int]) streams.Cancelable {
		attempts++
		attempt := attempts
		sub.Scheduler().Execute(func() {
			if attempt < 3 {
				sub.OnError(transient)
			} else {
				sub.OnError(permanent)
			}
		})
		return streams.Done
	})

	streams.RetryIf(source, func(err error) bool { return errors.Is(err, transient) }).
		Subscribe(down)
	sched.RunAll()

	require.Len(t, down.errs, 1)
	assert.ErrorIs(t, down.errs[0], permanent)
	assert.Equal(t, 3, attempts)
}

func TestRetryUnlimitedKeepsTrying(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	src := &flakySource{failures: 25, err: errors.New("transient"), items: []int{1}}

	streams.RetryUnlimited(src.observable()).Subscribe(down)
	sched.RunAll()

	assert.Equal(t, []int{1}, down.elems)
	assert.Equal(t, 26, src.attempts)
}

func TestRetryCancelStopsResubscription(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	src := &flakySource{failures: 1000, err: errors.New("transient")}

	c := streams.RetryWithBackoff(src.observable(), func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Second)
	}).Subscribe(down)
	sched.RunAll()
	require.Equal(t, 1, src.attempts)

	// Cancelled while waiting out the backoff: the pending attempt must
	// never happen.
	c.Cancel()
	sched.Advance(10 * time.Second)

	assert.Equal(t, 1, src.attempts)
	assert.Empty(t, down.errs)
	assert.Zero(t, down.completes)
}

func TestRetryWithBackoffDelaysAttempts(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	src := &flakySource{failures: 2, err: errors.New("transient"), items: []int{5}}

	streams.RetryWithBackoff(src.observable(), func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Second)
	}).Subscribe(down)

	sched.RunAll()
	assert.Equal(t, 1, src.attempts, "second attempt must wait for the backoff interval")

	sched.Advance(time.Second)
	assert.Equal(t, 2, src.attempts)
	assert.Empty(t, down.elems)

	sched.Advance(time.Second)
	assert.Equal(t, 3, src.attempts)
	assert.Equal(t, []int{5}, down.elems)
	assert.Equal(t, 1, down.completes)
}

func TestRetryWithBackoffStopForwardsTheError(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	boom := errors.New("permanent")
	src := &flakySource{failures: 100, err: boom}

	streams.RetryWithBackoff(src.observable(), func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}).Subscribe(down)

	sched.RunAll()
	sched.Advance(time.Millisecond)
	sched.Advance(time.Millisecond)
	sched.Advance(time.Millisecond)

	require.Len(t, down.errs, 1)
	assert.ErrorIs(t, down.errs[0], boom)
	assert.Equal(t, 3, src.attempts)
}
