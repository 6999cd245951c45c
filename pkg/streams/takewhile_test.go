package streams_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakewins/streamcore/pkg/streams"
)

func TestTakeWhileInclusiveDeliversTheBoundaryElement(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	log := &ackLog{}

	streams.TakeWhile(stopTracking(streams.FromSlice([]int{1, 2, 3, 4, 5}), log),
		func(a int) bool { return a < 3 }, true).
		Subscribe(down)
	sched.RunAll()

	assert.Equal(t, []int{1, 2, 3}, down.elems)
	assert.Equal(t, 1, down.completes)
	assert.True(t, log.sawStop(), "upstream must see Stop after the boundary element")
}

func TestTakeWhileExclusiveDiscardsTheBoundaryElement(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)

	streams.TakeWhile(streams.FromSlice([]int{1, 2, 3, 4, 5}),
		func(a int) bool { return a < 3 }, false).
		Subscribe(down)
	sched.RunAll()

	assert.Equal(t, []int{1, 2}, down.elems)
	assert.Equal(t, 1, down.completes)
}

func TestTakeWhilePredicateAlwaysTrueRunsToCompletion(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)

	streams.TakeWhile(streams.FromSlice([]int{1, 2, 3}), func(int) bool { return true }, false).
		Subscribe(down)
	sched.RunAll()

	assert.Equal(t, []int{1, 2, 3}, down.elems)
	assert.Equal(t, 1, down.completes)
}

func TestTakeWhilePanickingPredicateFailsTheStream(t *testing.T) {
	sched := schedOf(t)
	down := newRecorder[int](sched)
	log := &ackLog{}

	streams.TakeWhile(stopTracking(streams.FromSlice([]int{1, 2, 3}), log),
		func(a int) bool { panic("predicate exploded") }, false).
		Subscribe(down)
	sched.RunAll()

	assert.Empty(t, down.elems)
	require.Len(t, down.errs, 1)
	assert.Contains(t, down.errs[0].Error(), "predicate exploded")
	assert.True(t, log.sawStop())
}
