package malloc

// Malloc returns a zero-length-or-larger byte slice backed by n usable
// bytes of heap memory, or nil if the heap could not be grown to satisfy
// the request. The returned memory is not zeroed. Malloc(0) returns nil,
// matching the C convention the spec follows.
func (h *Heap) Malloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	asize := h.adjustSize(n)

	if bp, ok := h.index.findFit(h, asize); ok {
		bp = h.place(bp, asize)
		h.recordCanary(bp)
		return h.payload(bp, n)
	}

	extend := asize
	if extend < ChunkSize {
		extend = ChunkSize
	}
	bp, ok := h.extendHeap(extend)
	if !ok {
		return nil
	}
	bp = h.place(bp, asize)
	h.recordCanary(bp)
	return h.payload(bp, n)
}

// Free releases a slice previously returned by Malloc or Realloc on this
// Heap. Calling Free on a slice this heap did not allocate, or calling it
// twice on the same block, panics: both are caller-precondition violations,
// not recoverable error conditions.
func (h *Heap) Free(buf []byte) {
	if buf == nil {
		return
	}
	bp := h.bpOf(buf)
	if !h.blockAlloc(bp) {
		panic("malloc: double free")
	}
	h.checkCanary(bp)
	size := h.blockSize(bp)
	h.setHeader(bp, size, false)
	h.setFooter(bp, size, false)
	if h.variant == VariantSegregated {
		h.clearReservationTag(h.nextBlock(bp))
	}
	h.coalesce(bp)
}
