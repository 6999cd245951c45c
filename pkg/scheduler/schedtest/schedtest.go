// Package schedtest provides a deterministic Scheduler for tests: tasks
// queue up until the test runs them, time only moves when the test
// advances it, and reported failures are recorded for assertion instead
// of logged.
package schedtest

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jakewins/streamcore/pkg/scheduler"
)

// Scheduler is a scheduler.Scheduler whose execution is entirely under
// the test's control. It is safe for concurrent use, though most tests
// drive it from a single goroutine.
type Scheduler struct {
	// Clock is the virtual clock timers are armed against. Advance moves
	// it; tests can also manipulate it directly.
	Clock *clock.Mock

	mu       sync.Mutex
	tasks    []func()
	failures []error
	model    scheduler.ExecutionModel
}

// New returns a fresh test scheduler with the given recommended batch
// size. Batch size is a parameter here because producer yielding
// behaviour is part of what tests need to vary.
func New(batchSize int) *Scheduler {
	return &Scheduler{
		Clock: clock.NewMock(),
		model: scheduler.ExecutionModel{RecommendedBatchSize: batchSize},
	}
}

func (s *Scheduler) Execute(task func()) {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
}

func (s *Scheduler) ReportFailure(err error) {
	s.mu.Lock()
	s.failures = append(s.failures, err)
	s.mu.Unlock()
}

func (s *Scheduler) ExecutionModel() scheduler.ExecutionModel {
	return s.model
}

func (s *Scheduler) Now() time.Time {
	return s.Clock.Now()
}

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) *clock.Timer {
	return s.Clock.AfterFunc(d, fn)
}

// RunAll drains the task queue, including tasks enqueued by the tasks it
// runs, and returns how many tasks ran.
func (s *Scheduler) RunAll() int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return ran
		}
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()

		task()
		ran++
	}
}

// Advance moves the virtual clock forward, firing any timers that come
// due along the way, then drains the task queue.
func (s *Scheduler) Advance(d time.Duration) {
	s.Clock.Add(d)
	s.RunAll()
}

// Pending reports how many tasks are queued but not yet run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Failures returns every error reported out-of-band so far.
func (s *Scheduler) Failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.failures))
	copy(out, s.failures)
	return out
}

// IsQuiescent reports whether the scheduler has no queued tasks. Tests
// assert this at teardown to catch subscriptions that leaked work.
func (s *Scheduler) IsQuiescent() bool {
	return s.Pending() == 0
}
