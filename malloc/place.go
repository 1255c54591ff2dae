package malloc

// placeSplitThreshold is the adjusted-size cutoff at or above which the
// segregated variant splits at the high address of the victim block instead
// of the low address, trading a little extra search-list churn for less
// fragmentation on larger requests (spec.md's placement heuristic).
const placeSplitThreshold = 100

// place carves asize bytes out of the free block at bp (already removed
// from consideration by the caller via findFit, but still indexed) and
// returns the bp of the resulting allocated block.
//
// The two variants differ in both their no-split threshold and what
// happens to a split tail, mirroring mm_explicit.c's and
// mm_segregated.c's place functions exactly:
//
//   - explicit splits whenever the remainder is at least explicitMinBlockSize, and
//     immediately coalesces the split-off tail with whatever free block
//     might already follow it. This is safe without re-checking neighbor
//     state only because place is called immediately after findFit
//     selects bp, before any other block's allocation state can change.
//   - segregated splits whenever the remainder is more than its minimum
//     block size (strictly, unlike explicit's "at least"), places the
//     allocation at the high address of the block when asize reaches
//     placeSplitThreshold, and never coalesces the remainder: it is simply
//     reinserted into the free index as an ordinary free block.
func (h *Heap) place(bp, asize int) int {
	csize := h.blockSize(bp)
	h.index.remove(h, bp)
	remainder := csize - asize

	if h.variant == VariantSegregated {
		if remainder <= segregatedMinBlockSize {
			h.setHeader(bp, csize, true)
			h.setFooter(bp, csize, true)
			return bp
		}
		if asize >= placeSplitThreshold {
			h.index.insert(h, bp, remainder) // low part stays free

			allocBp := bp + remainder
			h.setHeaderFresh(allocBp, asize, true, false)
			h.setFooterFresh(allocBp, asize, true)
			return allocBp
		}
		h.setHeader(bp, asize, true)
		h.setFooter(bp, asize, true)

		tail := bp + asize
		h.index.insert(h, tail, remainder) // high part stays free
		return bp
	}

	if remainder < explicitMinBlockSize {
		h.setHeader(bp, csize, true)
		h.setFooter(bp, csize, true)
		return bp
	}

	h.setHeader(bp, asize, true)
	h.setFooter(bp, asize, true)

	tail := bp + asize
	h.setHeader(tail, remainder, false)
	h.setFooter(tail, remainder, false)
	h.coalesce(tail)
	return bp
}

// adjustSize computes the block size (header+payload+footer, 8-byte
// aligned) needed to satisfy a request for n usable bytes, per variant.
func (h *Heap) adjustSize(n int) int {
	asize := align8(n + DWordSize)
	if m := h.index.minBlockSize(); asize < m {
		asize = m
	}
	return asize
}
