package streams

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
)

// SafeSubscriber wraps a downstream subscriber and enforces the protocol
// on its behalf:
//
//   - events arriving after a terminal are dropped, not delivered
//   - a panic out of the downstream's OnNext becomes an OnError, or a
//     scheduler failure report if the pipeline already terminated
//   - a panic out of OnComplete/OnError (which must not happen) is
//     contained and reported out-of-band
//
// Each SafeSubscriber gets a unique subscription id that tags everything
// it logs and every error it wraps.
type SafeSubscriber[A any] struct {
	down       Subscriber[A]
	id         uuid.UUID
	logger     zerolog.Logger
	terminated bool
}

// SafeOption configures a SafeSubscriber.
type SafeOption func(*safeConfig)

type safeConfig struct {
	logger zerolog.Logger
}

// WithSafeLogger sets the logger dropped events and contained panics are
// recorded through. Default is a no-op logger.
func WithSafeLogger(logger zerolog.Logger) SafeOption {
	return func(c *safeConfig) {
		c.logger = logger
	}
}

// NewSafeSubscriber wraps down in protocol enforcement.
func NewSafeSubscriber[A any](down Subscriber[A], opts ...SafeOption) *SafeSubscriber[A] {
	cfg := safeConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	id := uuid.New()
	return &SafeSubscriber[A]{
		down:   down,
		id:     id,
		logger: cfg.logger.With().Str("component", "safe-subscriber").Str("subscription", id.String()).Logger(),
	}
}

// ID is the subscription id assigned when the wrapper was built.
func (s *SafeSubscriber[A]) ID() uuid.UUID {
	return s.id
}

func (s *SafeSubscriber[A]) Scheduler() scheduler.Scheduler {
	return s.down.Scheduler()
}

func (s *SafeSubscriber[A]) OnNext(a A) (result ack.Ack) {
	if s.terminated {
		s.logger.Warn().Msg("dropped OnNext after terminal event")
		return ack.Stop
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("subscription %s: consumer panicked in OnNext: %w", s.id, asError(r))
			result = ack.Stop
			if s.terminated {
				s.Scheduler().ReportFailure(err)
				return
			}
			s.terminated = true
			s.down.OnError(err)
		}
	}()
	return s.down.OnNext(a)
}

func (s *SafeSubscriber[A]) OnError(err error) {
	if s.terminated {
		s.logger.Warn().Err(err).Msg("dropped OnError after terminal event")
		s.Scheduler().ReportFailure(fmt.Errorf("subscription %s: error after terminal: %w", s.id, err))
		return
	}
	s.terminated = true
	defer func() {
		if r := recover(); r != nil {
			s.Scheduler().ReportFailure(fmt.Errorf("subscription %s: consumer panicked in OnError: %w", s.id, asError(r)))
		}
	}()
	s.down.OnError(err)
}

func (s *SafeSubscriber[A]) OnComplete() {
	if s.terminated {
		s.logger.Warn().Msg("dropped OnComplete after terminal event")
		return
	}
	s.terminated = true
	defer func() {
		if r := recover(); r != nil {
			s.Scheduler().ReportFailure(fmt.Errorf("subscription %s: consumer panicked in OnComplete: %w", s.id, asError(r)))
		}
	}()
	s.down.OnComplete()
}

// SubscribeSafe subscribes sub to source behind a SafeSubscriber. This is
// the entry point applications should use; the raw Subscribe is for
// builders that already guarantee the protocol.
func SubscribeSafe[A any](source Observable[A], sub Subscriber[A], opts ...SafeOption) Cancelable {
	return source.Subscribe(NewSafeSubscriber(sub, opts...))
}

// asError converts a recovered panic value into an error.
func asError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
