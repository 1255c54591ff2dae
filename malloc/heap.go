package malloc

import (
	"fmt"
	"unsafe"

	"github.com/blockheap/blockheap/malloc/sbrk"
)

// Variant selects which free-block index a Heap uses.
type Variant int

const (
	// VariantExplicit indexes free blocks with a single doubly linked LIFO
	// list threaded through the first two payload words of each free block.
	VariantExplicit Variant = iota
	// VariantSegregated indexes free blocks in a 20-class size-segregated
	// array of ascending-sorted lists, and supports realloc-in-place
	// growth via a reservation tag (see Heap.Realloc).
	VariantSegregated
)

// ChunkSize is the number of bytes requested from Sbrk when extending the
// explicit-variant heap, and the minimum extension for the segregated
// variant once its initial chunk is exhausted.
const ChunkSize = 1 << 12

// InitChunkSize is the number of bytes requested from Sbrk the first time a
// segregated-variant heap is extended beyond its prologue/epilogue.
const InitChunkSize = 1 << 6

// ReallocBuffer is the extra padding, in bytes, requested beyond the exact
// fit when Heap.Realloc grows a segregated-variant block in place.
const ReallocBuffer = 128

// Heap is a single contiguous, growable-but-not-shrinkable boundary-tag
// arena. A Heap is not safe for concurrent use: callers needing concurrent
// allocators must construct one Heap per goroutine.
type Heap struct {
	sbrk    sbrk.Sbrk
	variant Variant
	index   freeIndex

	arena      []byte
	arenaStart unsafe.Pointer

	prologue int // bp of the sentinel prologue block
	epilogue int // offset of the sentinel epilogue header word

	// canary is nil unless WithCanary was passed to the constructor. When
	// present it maps each live block's bp to a checksum of its own
	// boundary tags, recorded on allocation and verified on Free.
	canary map[int]uint64
}

// Option configures optional Heap behavior at construction time.
type Option func(*Heap)

// WithCanary enables a per-block corruption canary. Malloc and Realloc
// record an xxhash3 checksum of each block's header and footer words; Free
// recomputes and compares it before releasing the block, catching a caller
// that wrote past the end of its payload into the block's own boundary
// tags. Disabled by default because it costs a map entry per live block.
func WithCanary() Option {
	return func(h *Heap) { h.canary = make(map[int]uint64) }
}

// freeIndex is the pluggable free-block bookkeeping strategy shared by both
// heap variants. All offsets are block pointers (bp) in the C malloc-lab
// sense: the first byte of a block's payload, immediately after its header.
type freeIndex interface {
	minBlockSize() int
	insert(h *Heap, bp, size int)
	remove(h *Heap, bp int)
	findFit(h *Heap, asize int) (bp int, ok bool)
	all(h *Heap) []int
}

// NewExplicitHeap constructs a Heap using a single doubly linked LIFO free
// list over s.
func NewExplicitHeap(s sbrk.Sbrk, opts ...Option) (*Heap, error) {
	return newHeap(s, VariantExplicit, &explicitIndex{}, 6*WordSize, 2*DWordSize, ChunkSize, opts)
}

// NewSegregatedHeap constructs a Heap using a 20-class segregated free-list
// array over s, with realloc-in-place growth support.
func NewSegregatedHeap(s sbrk.Sbrk, opts ...Option) (*Heap, error) {
	return newHeap(s, VariantSegregated, &segregatedIndex{}, 4*WordSize, DWordSize, InitChunkSize, opts)
}

// newHeap installs the padding word, prologue block, and epilogue header,
// then performs the variant's initial extension. prologueBytes is the
// number of bytes requested for [pad][prologue header][prologue
// payload][prologue footer][epilogue header]; prologueSize is the size
// recorded in the prologue's own header/footer (its full block size,
// header and footer included).
func newHeap(s sbrk.Sbrk, variant Variant, idx freeIndex, prologueBytes, prologueSize, initExtend int, opts []Option) (*Heap, error) {
	off, ok := s.Grow(prologueBytes)
	if !ok {
		return nil, fmt.Errorf("malloc: initial heap reservation of %d bytes failed", prologueBytes)
	}
	h := &Heap{sbrk: s, variant: variant, index: idx}
	for _, opt := range opts {
		opt(h)
	}
	h.refreshArena()

	pad := off
	prologueHeaderOff := pad + WordSize
	prologueBp := prologueHeaderOff + WordSize
	prologueFooterOff := prologueBp + prologueSize - DWordSize
	epilogueOff := prologueFooterOff + WordSize

	h.putFresh(prologueHeaderOff, prologueSize, true, false)
	h.putFresh(prologueFooterOff, prologueSize, true, false)
	h.putFresh(epilogueOff, 0, true, false)
	h.prologue = prologueBp
	h.epilogue = epilogueOff

	if _, ok := h.extendHeap(initExtend); !ok {
		return nil, fmt.Errorf("malloc: initial heap extension of %d bytes failed", initExtend)
	}
	return h, nil
}

func (h *Heap) refreshArena() {
	h.arena = h.sbrk.Bytes()
	if len(h.arena) > 0 {
		h.arenaStart = unsafe.Pointer(&h.arena[0])
	}
}

func (h *Heap) getWord(off int) uint32 {
	return *(*uint32)(unsafe.Add(h.arenaStart, off))
}

func (h *Heap) putWord(off int, w uint32) {
	*(*uint32)(unsafe.Add(h.arenaStart, off)) = w
}

// put writes size/alloc at off, preserving whatever reservation tag bit was
// already stored there (mirrors mm_segregated.c's tag-preserving PUT macro).
func (h *Heap) put(off, size int, alloc bool) {
	h.putWord(off, pack(uint32(size), alloc, wordTag(h.getWord(off))))
}

// putFresh writes size/alloc/tag at off outright, discarding whatever was
// previously stored there (mirrors PUT_NOTAG, used only when installing a
// brand-new header/footer over memory with no prior meaning).
func (h *Heap) putFresh(off, size int, alloc, tag bool) {
	h.putWord(off, pack(uint32(size), alloc, tag))
}

func (h *Heap) setHeader(bp, size int, alloc bool) { h.put(headerOff(bp), size, alloc) }
func (h *Heap) setFooter(bp, size int, alloc bool) { h.put(footerOff(bp, size), size, alloc) }

func (h *Heap) setHeaderFresh(bp, size int, alloc, tag bool) {
	h.putFresh(headerOff(bp), size, alloc, tag)
}
func (h *Heap) setFooterFresh(bp, size int, alloc bool) {
	h.putFresh(footerOff(bp, size), size, alloc, false)
}

func (h *Heap) blockSize(bp int) int { return wordSize(h.getWord(headerOff(bp))) }
func (h *Heap) blockAlloc(bp int) bool { return wordAlloc(h.getWord(headerOff(bp))) }

func (h *Heap) setReservationTag(bp int) {
	off := headerOff(bp)
	h.putWord(off, h.getWord(off)|tagBit)
}

func (h *Heap) clearReservationTag(bp int) {
	off := headerOff(bp)
	h.putWord(off, h.getWord(off)&^tagBit)
}

// bpOf recovers the block pointer of a payload slice previously handed out
// by Malloc or Realloc. Panics if buf does not point inside this heap's
// arena, which can only happen if the caller passes a foreign slice.
func (h *Heap) bpOf(buf []byte) int {
	if len(buf) == 0 {
		panic("malloc: Free/Realloc called with a slice this heap did not allocate")
	}
	p := unsafe.Pointer(&buf[0])
	off := int(uintptr(p) - uintptr(h.arenaStart))
	if off <= 0 || off >= len(h.arena) {
		panic("malloc: Free/Realloc called with a slice this heap did not allocate")
	}
	return off
}

// payload returns a length-n slice over the block at bp, backed directly
// by the arena, with its cap extended to the block's full usable size
// (size minus header and footer) so callers may use spare slack up to
// cap(buf) the way a real allocator's usable_size would report it.
func (h *Heap) payload(bp, n int) []byte {
	ptr := unsafe.Add(h.arenaStart, bp)
	usable := h.blockSize(bp) - DWordSize
	return unsafe.Slice((*byte)(ptr), usable)[:n]
}

// nextBlock returns the bp of the block immediately following the one at
// bp, which may be the epilogue sentinel (size 0, allocated).
func (h *Heap) nextBlock(bp int) int { return bp + h.blockSize(bp) }

// extendHeap grows the arena by at least n bytes (rounded up to a multiple
// of DWordSize, and at least the index's minimum block size), installs a
// new free block spanning the growth in place of the old epilogue, and
// coalesces it with a free predecessor if any. Returns the bp of the
// resulting free block.
func (h *Heap) extendHeap(n int) (int, bool) {
	size := align8(n)
	if size < h.index.minBlockSize() {
		size = h.index.minBlockSize()
	}
	off, ok := h.sbrk.Grow(size)
	if !ok {
		return 0, false
	}
	h.refreshArena()

	bp := off
	h.setHeaderFresh(bp, size, false, false)
	h.setFooterFresh(bp, size, false)
	h.epilogue = bp + size - WordSize
	h.putFresh(h.epilogue, 0, true, false)

	return h.coalesce(bp), true
}
