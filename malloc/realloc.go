package malloc

// Realloc resizes the allocation backing buf to n usable bytes, preserving
// the lesser of n and len(buf) bytes of content, and returns the new slice
// (which may or may not alias buf). Realloc(nil, n) behaves as Malloc(n);
// Realloc(buf, 0) behaves as Free(buf) and returns nil.
//
// The explicit variant always reallocates via malloc+copy+free: it has no
// in-place growth path. The segregated variant first tries to grow the
// block in place by absorbing a free (or epilogue) successor, padding the
// new block with ReallocBuffer spare bytes and, if the padding shrinks
// below 2*ReallocBuffer, tagging the following block as reserved so an
// unrelated allocation cannot steal the room this block is likely to need
// again soon.
func (h *Heap) Realloc(buf []byte, n int) []byte {
	if buf == nil {
		return h.Malloc(n)
	}
	if n <= 0 {
		h.Free(buf)
		return nil
	}
	if h.variant == VariantSegregated {
		if out, ok := h.reallocInPlace(buf, n); ok {
			return out
		}
	}
	return h.reallocCopy(buf, n)
}

func (h *Heap) reallocCopy(buf []byte, n int) []byte {
	out := h.Malloc(n)
	if out == nil {
		return nil
	}
	copied := len(buf)
	if n < copied {
		copied = n
	}
	copy(out, buf[:copied])
	h.Free(buf)
	return out
}

// reallocInPlace attempts the segregated variant's realloc-in-place growth.
// ok is false when the block could not be grown in place (the successor is
// allocated, the successor is a free block too small to cover the growth
// and not followed by the epilogue, or heap extension failed); the caller
// falls back to reallocCopy.
func (h *Heap) reallocInPlace(buf []byte, n int) (out []byte, ok bool) {
	bp := h.bpOf(buf)
	oldSize := h.blockSize(bp)
	newSize := align8(n+DWordSize) + ReallocBuffer
	if m := h.index.minBlockSize(); newSize < m {
		newSize = m
	}

	if oldSize >= newSize {
		// mm_realloc's keep-in-place success path still recomputes the
		// buffer and tags the next block on every return, not only the
		// grow path; match that here instead of only tagging after a grow.
		h.tagNextIfBufferLow(bp, oldSize, n)
		return h.payload(bp, n), true
	}

	nextBp := h.nextBlock(bp)
	nextHeader := h.getWord(headerOff(nextBp))
	nextSize := wordSize(nextHeader)
	nextIsEpilogue := nextSize == 0
	nextFree := nextIsEpilogue || !wordAlloc(nextHeader)
	if !nextFree {
		return nil, false
	}

	if oldSize+nextSize < newSize {
		// Extending the heap only appends memory at the current break,
		// which is contiguous with bp's successor exclusively when that
		// successor is the epilogue itself. A free block short of the
		// heap's end has allocated memory beyond it; growing the heap
		// cannot make that free block any bigger, so there is no way to
		// satisfy this request in place and the caller must fall back to
		// a malloc+copy+free realloc.
		if !nextIsEpilogue {
			return nil, false
		}
		shortfall := newSize - oldSize - nextSize
		extend := shortfall
		if extend < ChunkSize {
			extend = ChunkSize
		}
		if _, grew := h.extendHeap(extend); !grew {
			return nil, false
		}
		nextHeader = h.getWord(headerOff(nextBp))
		nextSize = wordSize(nextHeader)
	}

	combined := oldSize + nextSize
	if combined < newSize {
		return nil, false
	}

	if nextSize > 0 {
		h.index.remove(h, nextBp)
	}
	h.setHeader(bp, combined, true)
	h.setFooter(bp, combined, true)

	h.tagNextIfBufferLow(bp, combined, n)
	h.recordCanary(bp)
	return h.payload(bp, n), true
}

// tagNextIfBufferLow marks the block following bp (currently sized
// blockSize) as reservation-tagged once the spare realloc buffer it leaves
// behind drops below twice ReallocBuffer, on every reallocInPlace success
// path (including keep-in-place), matching mm_segregated.c's mm_realloc.
func (h *Heap) tagNextIfBufferLow(bp, blockSize, n int) {
	remaining := blockSize - align8(n+DWordSize)
	if remaining < 2*ReallocBuffer {
		h.setReservationTag(h.nextBlock(bp))
	}
}
