package sbrk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBumpArenaGrow(t *testing.T) {
	b := NewBumpArena()

	off, ok := b.Grow(16)
	require.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Len(t, b.Bytes(), 16)

	off, ok = b.Grow(8)
	require.True(t, ok)
	assert.Equal(t, 16, off)
	assert.Len(t, b.Bytes(), 24)
}

func TestBumpArenaBounded(t *testing.T) {
	b := NewBoundedBumpArena(32)

	_, ok := b.Grow(16)
	require.True(t, ok)

	_, ok = b.Grow(16)
	require.True(t, ok)

	_, ok = b.Grow(1)
	assert.False(t, ok, "growth past MaxBytes must fail")
}

func TestBumpArenaOffsetsStayValidAcrossGrowth(t *testing.T) {
	b := NewBumpArena()
	off1, _ := b.Grow(8)
	b.Bytes()[off1] = 0xAB

	_, ok := b.Grow(4096)
	require.True(t, ok)

	assert.Equal(t, byte(0xAB), b.Bytes()[off1], "earlier offsets must survive later growth")
}
