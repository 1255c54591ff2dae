package main

import (
	"fmt"
	"time"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/blockheap/blockheap/malloc"
	"github.com/blockheap/blockheap/malloc/verify"
)

// Stats summarizes one trace replay.
type Stats struct {
	Ops       int
	PeakLive  int // peak sum of outstanding requested byte counts
	Elapsed   time.Duration
	OpsPerSec float64
}

func (s Stats) String() string {
	return fmt.Sprintf("ops=%d peak_live=%d elapsed=%s ops/sec=%.0f",
		s.Ops, s.PeakLive, s.Elapsed, s.OpsPerSec)
}

func finish(s *Stats, start time.Time) {
	s.Elapsed = time.Since(start)
	if s.Elapsed > 0 {
		s.OpsPerSec = float64(s.Ops) / s.Elapsed.Seconds()
	}
}

// replayHeap runs ops against h, a freshly constructed *malloc.Heap. When
// verifyEach is set, malloc/verify.Walk runs after every op and the first
// violation aborts the replay.
func replayHeap(h *malloc.Heap, ops []op, verifyEach bool) (Stats, error) {
	var stats Stats
	start := time.Now()
	live := make(map[int][]byte, len(ops))
	size := make(map[int]int, len(ops))
	var liveBytes int

	for i, o := range ops {
		switch o.kind {
		case opAlloc:
			buf := h.Malloc(o.size)
			if buf == nil {
				return stats, fmt.Errorf("heaptrace: op %d: a %d %d: out of memory", i, o.id, o.size)
			}
			live[o.id] = buf
			liveBytes += o.size - size[o.id]
			size[o.id] = o.size
		case opRealloc:
			buf := h.Realloc(live[o.id], o.size)
			if buf == nil && o.size > 0 {
				return stats, fmt.Errorf("heaptrace: op %d: r %d %d: out of memory", i, o.id, o.size)
			}
			live[o.id] = buf
			liveBytes += o.size - size[o.id]
			size[o.id] = o.size
		case opFree:
			h.Free(live[o.id])
			delete(live, o.id)
			liveBytes -= size[o.id]
			delete(size, o.id)
		}
		if liveBytes > stats.PeakLive {
			stats.PeakLive = liveBytes
		}
		stats.Ops++

		if verifyEach {
			if rep := verify.Walk(h); !rep.OK() {
				return stats, fmt.Errorf("heaptrace: op %d: heap invariant violated: %v", i, rep.Violations)
			}
		}
	}

	finish(&stats, start)
	return stats, nil
}

// replayMcache runs ops against bytedance/gopkg/lang/mcache's pooling
// allocator instead of a malloc.Heap, as a throughput/utilization baseline.
// mcache has no realloc-in-place primitive, so a growing realloc is a
// malloc+copy+free, same as our explicit variant.
func replayMcache(ops []op) (Stats, error) {
	var stats Stats
	start := time.Now()
	live := make(map[int][]byte, len(ops))
	size := make(map[int]int, len(ops))
	var liveBytes int

	for _, o := range ops {
		switch o.kind {
		case opAlloc:
			live[o.id] = mcache.Malloc(o.size)
			liveBytes += o.size - size[o.id]
			size[o.id] = o.size
		case opRealloc:
			grown := dirtmake.Bytes(o.size, o.size)
			if old := live[o.id]; old != nil {
				copy(grown, old)
				mcache.Free(old)
			}
			live[o.id] = grown
			liveBytes += o.size - size[o.id]
			size[o.id] = o.size
		case opFree:
			if buf := live[o.id]; buf != nil {
				mcache.Free(buf)
			}
			delete(live, o.id)
			liveBytes -= size[o.id]
			delete(size, o.id)
		}
		if liveBytes > stats.PeakLive {
			stats.PeakLive = liveBytes
		}
		stats.Ops++
	}

	finish(&stats, start)
	return stats, nil
}
