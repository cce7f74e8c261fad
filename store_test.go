package boron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_NewStorePinsInvalidPlaceholder(t *testing.T) {
	s := NewStore()
	assert.Equal(t, int32(1), s.len())
	assert.Equal(t, DatatypeUnset, s.at(0).Kind)
}

func TestStore_GenGrowsWithoutCollector(t *testing.T) {
	s := NewStore()
	ids := s.gen(3, nil)
	require.Len(t, ids, 3)
	assert.Equal(t, []int32{1, 2, 3}, ids)
	assert.Equal(t, int32(4), s.len())
}

func TestStore_GenDrainsFreeListBeforeGrowing(t *testing.T) {
	s := NewStore()
	ids := s.gen(2, nil)
	s.free(ids[0])
	s.free(ids[1])

	reused := s.gen(2, nil)
	assert.ElementsMatch(t, ids, reused, "gen must prefer recycled slots over growing the store")
	assert.Equal(t, int32(3), s.len(), "no new slots should have been appended when the free list covered the request")
}

func TestStore_GenInvokesCollectOnlyWhenFreeListInsufficient(t *testing.T) {
	s := NewStore()
	id := s.gen(1, nil)[0]
	s.free(id)

	called := 0
	got := s.gen(2, func() { called++ })
	require.Len(t, got, 2)
	assert.Equal(t, 1, called, "collect must run exactly once when the free list can't satisfy the request outright")
}
