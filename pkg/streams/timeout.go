package streams

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
)

// Timeout mirrors the source until the gap between consecutive elements
// exceeds interval, measured on the subscriber's scheduler clock. On a
// timeout the source is cancelled and the downstream fails with
// ErrTimeout.
func Timeout[A any](source Observable[A], interval time.Duration) Observable[A] {
	return &timeoutObservable[A]{source: source, interval: interval}
}

// TimeoutFallback is Timeout with a second chance: instead of failing,
// it cancels the source and continues the downstream from backup.
func TimeoutFallback[A any](source Observable[A], interval time.Duration, backup Observable[A]) Observable[A] {
	return &timeoutObservable[A]{source: source, interval: interval, backup: backup}
}

type timeoutObservable[A any] struct {
	source   Observable[A]
	interval time.Duration
	backup   Observable[A]
}

func (o *timeoutObservable[A]) Subscribe(down Subscriber[A]) Cancelable {
	s := &timeoutSubscriber[A]{
		down:     down,
		interval: o.interval,
		backup:   o.backup,
		upstream: NewSerialCancelable(),
	}
	s.mu.Lock()
	s.arm()
	s.mu.Unlock()
	s.upstream.Set(o.source.Subscribe(s))
	return CancelFunc(s.cancel)
}

// timeoutSubscriber sits between source and downstream with a one-shot
// timer racing every element. The timer callback arrives from the
// clock's goroutine, so unlike ordinary operators this one needs a lock;
// the epoch counter settles the race where a timer fires just as an
// element lands and loses: a callback whose epoch is stale is a no-op.
type timeoutSubscriber[A any] struct {
	down     Subscriber[A]
	interval time.Duration
	backup   Observable[A]
	upstream *SerialCancelable

	mu         sync.Mutex
	terminated bool
	epoch      int
	timer      *clock.Timer
}

func (s *timeoutSubscriber[A]) Scheduler() scheduler.Scheduler {
	return s.down.Scheduler()
}

// arm starts the inter-element timer. Callers hold s.mu.
func (s *timeoutSubscriber[A]) arm() {
	s.epoch++
	epoch := s.epoch
	s.timer = s.down.Scheduler().AfterFunc(s.interval, func() {
		s.onTimeout(epoch)
	})
}

// disarm stops the pending timer and invalidates any callback already in
// flight. Callers hold s.mu.
func (s *timeoutSubscriber[A]) disarm() {
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *timeoutSubscriber[A]) OnNext(elem A) ack.Ack {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return ack.Stop
	}
	s.disarm()
	s.mu.Unlock()

	a := s.down.OnNext(elem)
	a.Notify(func(resolved ack.Ack, err error) {
		if err != nil || resolved.IsStop() {
			// A failed ack travels back to the producer, which routes it
			// into OnError; a Stop ends the stream. Either way there is
			// no next element to time.
			return
		}
		s.mu.Lock()
		if !s.terminated {
			s.arm()
		}
		s.mu.Unlock()
	})
	return a
}

func (s *timeoutSubscriber[A]) OnError(err error) {
	if !s.settle() {
		s.down.Scheduler().ReportFailure(err)
		return
	}
	s.down.OnError(err)
}

func (s *timeoutSubscriber[A]) OnComplete() {
	if !s.settle() {
		return
	}
	s.down.OnComplete()
}

// settle claims the terminal transition, reporting whether the caller
// won it.
func (s *timeoutSubscriber[A]) settle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return false
	}
	s.terminated = true
	s.disarm()
	return true
}

func (s *timeoutSubscriber[A]) onTimeout(epoch int) {
	s.mu.Lock()
	if s.terminated || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.timer = nil
	source := s.upstream
	var backupHandle *SerialCancelable
	if s.backup != nil {
		// Swap in a fresh handle for the backup run so a later external
		// cancel severs the backup rather than the dead source.
		backupHandle = NewSerialCancelable()
		s.upstream = backupHandle
	}
	s.mu.Unlock()

	source.Cancel()
	if backupHandle != nil {
		backupHandle.Set(s.backup.Subscribe(s.down))
		return
	}
	s.down.OnError(fmt.Errorf("%w after %s", ErrTimeout, s.interval))
}

func (s *timeoutSubscriber[A]) cancel() {
	s.settle()
	s.mu.Lock()
	up := s.upstream
	s.mu.Unlock()
	up.Cancel()
}
