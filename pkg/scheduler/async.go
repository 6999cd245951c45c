package scheduler

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Option configures a Scheduler built by NewAsync.
type Option func(*asyncScheduler)

// WithLogger sets the logger failures are reported through. The default
// is a no-op logger; a library must stay silent unless asked not to.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *asyncScheduler) {
		s.logger = logger
	}
}

// WithBatchSize overrides the recommended batch size handed to producers.
func WithBatchSize(n int) Option {
	return func(s *asyncScheduler) {
		if n > 0 {
			s.model.RecommendedBatchSize = n
		}
	}
}

// WithClock substitutes the wall clock, mostly useful when embedding the
// async scheduler in tests that still want real concurrency.
func WithClock(c clock.Clock) Option {
	return func(s *asyncScheduler) {
		s.clock = c
	}
}

// NewAsync returns a Scheduler that runs each task on its own goroutine
// against the wall clock. A task that panics is recovered and routed to
// ReportFailure rather than crashing the process.
func NewAsync(opts ...Option) Scheduler {
	s := &asyncScheduler{
		clock:  clock.New(),
		logger: zerolog.Nop(),
		model:  ExecutionModel{RecommendedBatchSize: DefaultBatchSize},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type asyncScheduler struct {
	clock  clock.Clock
	logger zerolog.Logger
	model  ExecutionModel
}

func (s *asyncScheduler) Execute(task func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.ReportFailure(fmt.Errorf("scheduled task panicked: %v", r))
			}
		}()
		task()
	}()
}

func (s *asyncScheduler) ReportFailure(err error) {
	s.logger.Error().
		Str("component", "scheduler").
		Err(err).
		Msg("uncaught failure in stream pipeline")
}

func (s *asyncScheduler) ExecutionModel() ExecutionModel {
	return s.model
}

func (s *asyncScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *asyncScheduler) AfterFunc(d time.Duration, fn func()) *clock.Timer {
	return s.clock.AfterFunc(d, fn)
}
