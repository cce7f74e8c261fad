package boron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlockBuffer(thread *Thread, cells ...Cell) int32 {
	id := thread.Gen(1)[0]
	buf := thread.Store.at(id)
	buf.Kind = DatatypeBlock
	buf.Cells = cells
	return id
}

func TestCollect_SweepsUnreachableBuffers(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	garbage := newBlockBuffer(thread, IntCell(1))
	Collect(thread)

	assert.True(t, thread.Store.at(garbage).isFree(), "a buffer with no root referencing it must be swept")
}

func TestCollect_StackRootsSurvive(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	kept := newBlockBuffer(thread, IntCell(7))
	thread.Stack = append(thread.Stack, seriesCell(DatatypeBlock, kept, 0, SeriesEnd))

	Collect(thread)

	assert.False(t, thread.Store.at(kept).isFree(), "a buffer referenced from the value stack must survive a collection")
}

func TestCollect_HoldSurvivesAcrossMultipleRecycles(t *testing.T) {
	// Invariant 3 (spec.md §8): a held buffer id remains valid and its
	// contents unchanged across any number of recycle calls until release.
	env := NewEnv()
	thread := NewThread(env)

	held := newBlockBuffer(thread, IntCell(99))
	h := thread.Hold(held)

	for i := 0; i < 5; i++ {
		Collect(thread)
		require.False(t, thread.Store.at(held).isFree(), "held buffer must survive recycle #%d", i)
		assert.Equal(t, int64(99), thread.Store.at(held).Cells[0].Int())
	}

	thread.Release(h)
	Collect(thread)
	assert.True(t, thread.Store.at(held).isFree(), "releasing the hold must let the next collection sweep the buffer")
}

func TestCollect_ScratchCellRoots(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	kept := newBlockBuffer(thread, IntCell(3))
	thread.Scratch = seriesCell(DatatypeBlock, kept, 0, SeriesEnd)

	Collect(thread)
	assert.False(t, thread.Store.at(kept).isFree())
}

func TestCollect_NestedBlockReachability(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	inner := newBlockBuffer(thread, IntCell(5))
	outer := newBlockBuffer(thread, seriesCell(DatatypeBlock, inner, 0, SeriesEnd))
	thread.Stack = append(thread.Stack, seriesCell(DatatypeBlock, outer, 0, SeriesEnd))

	Collect(thread)

	assert.False(t, thread.Store.at(outer).isFree())
	assert.False(t, thread.Store.at(inner).isFree(), "a block reachable only through a nested cell in a reachable block must still be marked")
}

func TestCollect_GlobalContextAlwaysSurvives(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	Collect(thread)
	assert.False(t, thread.Store.at(GlobalContextBuffer).isFree(), "the pinned global context must never be swept")
}
