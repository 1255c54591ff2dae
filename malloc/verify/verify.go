// Package verify implements a heap-walker diagnostic that checks a
// malloc.Heap against the structural invariants a correct boundary-tag
// allocator must always satisfy. It is deliberately kept outside the core
// malloc package so that production code never pays for it; tests and the
// heaptrace CLI's -verify flag call Walk after every mutating operation.
package verify

import "github.com/blockheap/blockheap/malloc"

// Report is the result of a single Walk.
type Report struct {
	Blocks         int // total blocks visited between prologue and epilogue
	FreeBlocks     int
	AllocBlocks    int
	Violations     []string
}

// OK reports whether the walked heap satisfied every invariant.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Walk traverses h from its first real block to the epilogue, checking:
//
//   - P1: every header's (size, alloc) agrees with its footer's.
//   - P2: forward iteration via size terminates at the epilogue (size 0)
//     without running off the end of the arena.
//   - P3: no two adjacent blocks are both free (coalescing must be total),
//     unless the left one carries a reservation tag (segregated variant):
//     coalesce only ever treats a tagged block as allocated when it is the
//     left side of the pair, matching mm_segregated.c's coalesce, which
//     checks GET_TAG(HDRP(PREV_BLKP(bp))) and nothing on the next side.
//   - P4: every block's size is a positive multiple of 8.
//   - P5: the set of blocks the free index reports matches exactly the set
//     of blocks this walk finds marked free.
//   - P6: every free block the index reports is reachable from this walk
//     (no index entries pointing at stale or out-of-range offsets).
//
// Walk requires malloc.Heap to expose its invariant-checking surface via
// the malloc.Walker interface; *malloc.Heap implements it.
func Walk(h malloc.Walker) Report {
	var rep Report
	prevFree := false
	prevTagged := false

	indexed := h.FreeBlocks()
	seen := make(map[int]bool, len(indexed))

	bp := h.FirstBlock()
	for {
		size, alloc, tagged := h.BlockInfo(bp)
		if size == 0 {
			if !alloc {
				rep.Violations = append(rep.Violations, "epilogue sentinel has its allocated bit clear")
			}
			break
		}
		if size%malloc.DWordSize != 0 || size <= 0 {
			rep.Violations = append(rep.Violations, "block size not a positive multiple of 8")
		}
		if !h.FooterAgrees(bp, size, alloc) {
			rep.Violations = append(rep.Violations, "header/footer mismatch")
		}

		rep.Blocks++
		if alloc {
			rep.AllocBlocks++
		} else {
			rep.FreeBlocks++
			if prevFree && !prevTagged {
				rep.Violations = append(rep.Violations, "two adjacent free blocks were not coalesced")
			}
			seen[bp] = true
		}

		prevFree = !alloc
		prevTagged = tagged
		bp += size
		if bp > h.ArenaLen() {
			rep.Violations = append(rep.Violations, "walk ran past the end of the arena without reaching the epilogue")
			break
		}
	}

	for _, ibp := range indexed {
		if !seen[ibp] {
			rep.Violations = append(rep.Violations, "free index references a block the walk did not find free")
		}
		delete(seen, ibp)
	}
	for range seen {
		rep.Violations = append(rep.Violations, "walk found a free block the free index does not reference")
	}

	return rep
}
