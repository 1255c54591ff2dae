package malloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockheap/blockheap/malloc"
	"github.com/blockheap/blockheap/malloc/sbrk"
)

type heapFactory struct {
	name string
	new  func() (*malloc.Heap, error)
}

func heapFactories() []heapFactory {
	return []heapFactory{
		{"explicit", func() (*malloc.Heap, error) { return malloc.NewExplicitHeap(sbrk.NewBumpArena()) }},
		{"segregated", func() (*malloc.Heap, error) { return malloc.NewSegregatedHeap(sbrk.NewBumpArena()) }},
	}
}

func TestMallocZeroReturnsNil(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			assert.Nil(t, h.Malloc(0))
			assert.Nil(t, h.Malloc(-1))
		})
	}
}

func TestMallocReturnsUsableMemory(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			buf := h.Malloc(100)
			require.Len(t, buf, 100)
			for i := range buf {
				buf[i] = byte(i)
			}
			for i := range buf {
				assert.Equal(t, byte(i), buf[i])
			}
		})
	}
}

func TestDistinctAllocationsDoNotOverlap(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			a := h.Malloc(64)
			b := h.Malloc(64)
			for i := range a {
				a[i] = 0xAA
			}
			for i := range b {
				b[i] = 0xBB
			}
			for i := range a {
				assert.Equal(t, byte(0xAA), a[i])
			}
			for i := range b {
				assert.Equal(t, byte(0xBB), b[i])
			}
		})
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			assert.NotPanics(t, func() { h.Free(nil) })
		})
	}
}

func TestDoubleFreePanics(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			buf := h.Malloc(32)
			h.Free(buf)
			assert.Panics(t, func() { h.Free(buf) })
		})
	}
}

func TestFreeForeignSlicePanics(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			foreign := make([]byte, 16)
			assert.Panics(t, func() { h.Free(foreign) })
		})
	}
}

func TestHeapGrowsBeyondInitialChunk(t *testing.T) {
	for _, f := range heapFactories() {
		t.Run(f.name, func(t *testing.T) {
			h, err := f.new()
			require.NoError(t, err)
			var bufs [][]byte
			for i := 0; i < 2000; i++ {
				buf := h.Malloc(64)
				require.NotNil(t, buf, "allocation %d should succeed via heap growth", i)
				bufs = append(bufs, buf)
			}
			for _, buf := range bufs {
				h.Free(buf)
			}
		})
	}
}

func TestHeapExhaustionReturnsNil(t *testing.T) {
	bounded := sbrk.NewBoundedBumpArena(1 << 16)
	h, err := malloc.NewExplicitHeap(bounded)
	require.NoError(t, err)

	var last []byte
	for i := 0; i < 10000; i++ {
		buf := h.Malloc(64)
		if buf == nil {
			return
		}
		last = buf
	}
	t.Fatalf("expected heap exhaustion, last alloc was %v", last != nil)
}
