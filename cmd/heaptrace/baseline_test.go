package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockheap/blockheap/malloc"
	"github.com/blockheap/blockheap/malloc/sbrk"
)

func sampleOps() []op {
	return []op{
		{kind: opAlloc, id: 0, size: 64},
		{kind: opAlloc, id: 1, size: 128},
		{kind: opRealloc, id: 0, size: 256},
		{kind: opFree, id: 1},
		{kind: opFree, id: 0},
	}
}

func TestReplayHeapExplicit(t *testing.T) {
	h, err := malloc.NewExplicitHeap(sbrk.NewBumpArena())
	require.NoError(t, err)

	stats, err := replayHeap(h, sampleOps(), true)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Ops)
	assert.GreaterOrEqual(t, stats.PeakLive, 256)
}

func TestReplayHeapSegregated(t *testing.T) {
	h, err := malloc.NewSegregatedHeap(sbrk.NewBumpArena())
	require.NoError(t, err)

	stats, err := replayHeap(h, sampleOps(), true)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Ops)
}

func TestReplayMcacheBaseline(t *testing.T) {
	stats, err := replayMcache(sampleOps())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Ops)
}
