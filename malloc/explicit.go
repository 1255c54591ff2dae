package malloc

// explicitMinBlockSize is the smallest block the explicit variant can ever
// place: three double words (24 bytes), more than the four words header +
// pred + succ + footer need.
const explicitMinBlockSize = 3 * DWordSize

// explicitIndex is a single doubly linked LIFO free list. Free blocks store
// their predecessor/successor bp (0 meaning "none") in their first two
// payload words, exactly where mm_explicit.c's PRED/SUCC macros point.
type explicitIndex struct {
	head int // bp of the most recently freed block, 0 if the list is empty
}

func (e *explicitIndex) minBlockSize() int { return explicitMinBlockSize }

func (h *Heap) getPred(bp int) int { return int(int32(h.getWord(bp))) }
func (h *Heap) setPred(bp, v int)  { h.putWord(bp, uint32(int32(v))) }
func (h *Heap) getSucc(bp int) int { return int(int32(h.getWord(bp + WordSize))) }
func (h *Heap) setSucc(bp, v int)  { h.putWord(bp+WordSize, uint32(int32(v))) }

// insert threads bp onto the head of the free list.
func (e *explicitIndex) insert(h *Heap, bp, size int) {
	h.setHeader(bp, size, false)
	h.setFooter(bp, size, false)
	h.setPred(bp, 0)
	h.setSucc(bp, e.head)
	if e.head != 0 {
		h.setPred(e.head, bp)
	}
	e.head = bp
}

// remove splices bp out of the free list.
func (e *explicitIndex) remove(h *Heap, bp int) {
	pred := h.getPred(bp)
	succ := h.getSucc(bp)
	if pred != 0 {
		h.setSucc(pred, succ)
	} else {
		e.head = succ
	}
	if succ != 0 {
		h.setPred(succ, pred)
	}
}

// findFit walks the list head-to-tail (LIFO order: most recently freed
// first) returning the first block large enough to hold asize.
func (e *explicitIndex) findFit(h *Heap, asize int) (int, bool) {
	for bp := e.head; bp != 0; bp = h.getSucc(bp) {
		if h.blockSize(bp) >= asize {
			return bp, true
		}
	}
	return 0, false
}

// all returns every bp currently indexed, for verify.Walk.
func (e *explicitIndex) all(h *Heap) []int {
	var out []int
	for bp := e.head; bp != 0; bp = h.getSucc(bp) {
		out = append(out, bp)
	}
	return out
}
