package streams

import (
	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
)

// opState is the chassis every operator subscriber is built on: the
// downstream it feeds, and a terminated flag that suppresses late or
// duplicate terminal events. Operators embed it and override whichever
// callbacks do more than forward.
type opState[B any] struct {
	down       Subscriber[B]
	terminated bool
}

func (s *opState[B]) Scheduler() scheduler.Scheduler {
	return s.down.Scheduler()
}

func (s *opState[B]) OnError(err error) {
	s.forwardError(err)
}

func (s *opState[B]) OnComplete() {
	s.forwardComplete()
}

func (s *opState[B]) forwardError(err error) {
	if s.terminated {
		return
	}
	s.terminated = true
	s.down.OnError(err)
}

func (s *opState[B]) forwardComplete() {
	if s.terminated {
		return
	}
	s.terminated = true
	s.down.OnComplete()
}

// emitLast delivers a synthesised final element followed by completion.
// Completion only goes out once the element's ack resolves to Continue:
// a Stop means the downstream gave up and nothing may follow, a failed
// ack becomes the terminal error instead. Callers mark themselves
// terminated before calling this; the flag guards the upstream side, not
// this synthesised tail.
func (s *opState[B]) emitLast(elem B) {
	s.down.OnNext(elem).Notify(func(resolved ack.Ack, err error) {
		switch {
		case err != nil:
			s.down.OnError(err)
		case resolved.IsStop():
		default:
			s.down.OnComplete()
		}
	})
}

// handlePanic is the recovery half of the user-code guard. Operators set
// a streaming flag before running caller-supplied code and clear it once
// that code returned, before touching the downstream. A panic while the
// flag is set is the caller's fault and is routed into the pipeline; a
// panic after it cleared came from the downstream itself and must not
// re-enter the pipeline, so it goes to the scheduler's failure sink.
func (s *opState[B]) handlePanic(streamingUserCode bool, err error) ack.Ack {
	if streamingUserCode && !s.terminated {
		s.terminated = true
		s.down.OnError(err)
		return ack.Stop
	}
	s.down.Scheduler().ReportFailure(err)
	return ack.Stop
}
