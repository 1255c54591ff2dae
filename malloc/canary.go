package malloc

import (
	"encoding/binary"

	"github.com/bytedance/gopkg/util/xxhash3"
)

// tagWords reports a block's current header and footer words packed into
// a fixed-size byte array, the input to the canary checksum. The header's
// reservation tag bit is left out: the allocator itself sets and clears it
// on live blocks during Realloc and Free.
func (h *Heap) tagWords(bp int) [2 * WordSize]byte {
	var buf [2 * WordSize]byte
	size := h.blockSize(bp)
	binary.LittleEndian.PutUint32(buf[:WordSize], h.getWord(headerOff(bp))&^tagBit)
	binary.LittleEndian.PutUint32(buf[WordSize:], h.getWord(footerOff(bp, size)))
	return buf
}

// recordCanary snapshots bp's current boundary tags. A no-op when the
// canary feature was not requested via WithCanary.
func (h *Heap) recordCanary(bp int) {
	if h.canary == nil {
		return
	}
	words := h.tagWords(bp)
	h.canary[bp] = xxhash3.Hash(words[:])
}

// checkCanary verifies bp's boundary tags still match what was recorded at
// allocation time, and forgets the recorded value either way. Panics on
// mismatch: a caller wrote past its payload into the block's own header or
// footer. A no-op when the canary feature was not requested.
func (h *Heap) checkCanary(bp int) {
	if h.canary == nil {
		return
	}
	want, ok := h.canary[bp]
	delete(h.canary, bp)
	if !ok {
		return
	}
	words := h.tagWords(bp)
	if xxhash3.Hash(words[:]) != want {
		panic("malloc: heap corruption detected: boundary tag of freed block was overwritten")
	}
}
