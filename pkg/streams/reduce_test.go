package streams_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakewins/streamcore/pkg/streams"
)

func add(a, b int) int { return a + b }

func TestReduceOverEmptyCompletesWithoutEmitting(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)

	streams.Reduce(streams.FromSlice([]int{}), add).Subscribe(down)
	sched.RunAll()

	assert.Empty(t, down.elems)
	assert.Equal(t, 1, down.completes)
	assert.Zero(t, down.violations)
}

func TestReduceOverSingleElementCompletesWithoutEmitting(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)

	// One element is not enough to ever apply the combiner, so nothing
	// is emitted.
	streams.Reduce(streams.FromSlice([]int{42}), add).Subscribe(down)
	sched.RunAll()

	assert.Empty(t, down.elems)
	assert.Equal(t, 1, down.completes)
}

func TestReduceSums(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)

	streams.Reduce(streams.FromSlice([]int{1, 2, 3, 4}), add).Subscribe(down)
	sched.RunAll()

	assert.Equal(t, []int{10}, down.elems)
	assert.Equal(t, 1, down.completes)
}

func TestReduceForwardsUpstreamError(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	boom := errors.New("boom")

	streams.Reduce(emitThenError([]int{1, 2}, boom), add).Subscribe(down)
	sched.RunAll()

	assert.Empty(t, down.elems)
	require.Len(t, down.errs, 1)
	assert.ErrorIs(t, down.errs[0], boom)
	assert.Zero(t, down.completes)
}

func TestReducePanickingCombinerFailsTheStream(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	log := &ackLog{}

	source := stopTracking(streams.FromSlice([]int{1, 2, 3}), log)
	streams.Reduce(source, func(a, b int) int {
		panic("combiner exploded")
	}).Subscribe(down)
	sched.RunAll()

	require.Len(t, down.errs, 1)
	assert.Contains(t, down.errs[0].Error(), "combiner exploded")
	assert.True(t, log.sawStop(), "source should have been told to stop")
	assert.Zero(t, down.completes)
}
