// Package scheduler defines the execution context a stream subscription
// runs in. Producers never spin their own goroutines directly; anything
// that has to happen later - resuming after a deferred ack, yielding at a
// batch boundary, firing a timeout - is submitted here.
package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler runs tasks on behalf of stream subscriptions and acts as the
// out-of-band sink for errors that can no longer travel through a
// pipeline (a finaliser failing after the downstream already gave up, a
// terminal handler panicking, and so on).
//
// Implementations must be safe for concurrent use; a single Scheduler is
// typically shared by every subscription in a process.
type Scheduler interface {
	// Execute submits a task for asynchronous execution. Tasks submitted
	// by a single subscription are never run concurrently with each
	// other, because a correct producer only ever has one in flight.
	Execute(task func())

	// ReportFailure is the error sink of last resort. Errors delivered
	// here were not deliverable through a pipeline's OnError without
	// breaking the at-most-one-terminal rule.
	ReportFailure(err error)

	// ExecutionModel describes how eagerly a producer may emit before
	// yielding back to the scheduler.
	ExecutionModel() ExecutionModel

	// Now is the scheduler's view of the current time. Operators must
	// use this rather than time.Now so a test scheduler can run them
	// against virtual time.
	Now() time.Time

	// AfterFunc arranges for fn to run after d has elapsed on the
	// scheduler's clock. The returned timer can be stopped; Stop reports
	// true when the call stopped the timer before it fired.
	AfterFunc(d time.Duration, fn func()) *clock.Timer
}

// ExecutionModel is a hint producers use to decide when to yield.
type ExecutionModel struct {
	// RecommendedBatchSize is how many elements a synchronous producer
	// should emit before rescheduling itself to let other tasks run.
	RecommendedBatchSize int
}

// DefaultBatchSize is used when a Scheduler is built without an explicit
// batch size.
const DefaultBatchSize = 128
