package malloc

// Walker is the read-only surface a Heap exposes to package verify, kept
// separate from the allocator's public API so ordinary callers of Malloc/
// Free/Realloc never see it.
type Walker interface {
	FirstBlock() int
	ArenaLen() int
	BlockInfo(bp int) (size int, alloc, tagged bool)
	FooterAgrees(bp, size int, alloc bool) bool
	FreeBlocks() []int
}

// FirstBlock returns the bp of the first real (non-prologue) block.
func (h *Heap) FirstBlock() int { return h.nextBlock(h.prologue) }

// ArenaLen returns the current length of the heap's backing arena.
func (h *Heap) ArenaLen() int { return len(h.arena) }

// BlockInfo decodes the header word at bp.
func (h *Heap) BlockInfo(bp int) (size int, alloc, tagged bool) {
	w := h.getWord(headerOff(bp))
	return wordSize(w), wordAlloc(w), wordTag(w)
}

// FooterAgrees reports whether the footer of a size-byte block at bp
// encodes the same (size, alloc) as was just read from its header.
func (h *Heap) FooterAgrees(bp, size int, alloc bool) bool {
	w := h.getWord(footerOff(bp, size))
	return wordSize(w) == size && wordAlloc(w) == alloc
}

// FreeBlocks returns every bp the free index currently tracks.
func (h *Heap) FreeBlocks() []int { return h.index.all(h) }
