/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mempool is a zero-setup convenience layer over a single
// package-level malloc.Heap: call Malloc/Free instead of constructing and
// threading a *malloc.Heap through your own code.
//
// Unlike malloc.Heap itself, this package's functions are safe to call
// concurrently: a mutex serializes every operation against the shared
// package-level heap. That does not reach into malloc.Heap and make a
// single instance concurrency-safe (still explicitly out of scope); it
// just means mempool owns exactly one heap and guards it.
package mempool

import (
	"sync"

	"github.com/blockheap/blockheap/malloc"
	"github.com/blockheap/blockheap/malloc/sbrk"
)

var (
	mu   sync.Mutex
	heap *malloc.Heap
)

func init() {
	h, err := malloc.NewSegregatedHeap(sbrk.NewBumpArena())
	if err != nil {
		panic("mempool: failed to initialize package heap: " + err.Error())
	}
	heap = h
}

// Malloc returns size usable bytes from the package heap. The returned
// memory is not zeroed. Malloc(0) returns an empty, non-nil slice so that
// callers can always safely index result[:0] without a nil check, the same
// contract the teacher's package-function-style allocator offers.
func Malloc(size int) []byte {
	if size == 0 {
		return []byte{}
	}
	mu.Lock()
	defer mu.Unlock()
	return heap.Malloc(size)
}

// Free releases buf, previously returned by Malloc, Append, or AppendStr.
// Freeing an empty slice (cap 0) is a no-op, matching Malloc(0)'s contract.
func Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	heap.Free(buf[:cap(buf)])
}

// Cap reports the usable capacity of a slice returned by Malloc: the
// number of bytes Realloc could grow it into in place for free. It is
// simply cap(buf); the helper exists so callers read intent at call sites
// the way the teacher's mempool.Cap does, without assuming anything about
// how that capacity is tracked internally.
func Cap(buf []byte) int {
	return cap(buf)
}

// Append appends b to a, reallocating through the package heap only when a
// does not have the room.
func Append(a []byte, b ...byte) []byte {
	if cap(a)-len(a) >= len(b) {
		return append(a, b...)
	}
	return appendSlow(a, b)
}

// AppendStr is Append for a string argument, avoiding the []byte(s)
// conversion's own allocation on the fast path.
func AppendStr(a []byte, b string) []byte {
	if cap(a)-len(a) >= len(b) {
		return append(a, b...)
	}
	return appendSlow(a, []byte(b))
}

func appendSlow(a, b []byte) []byte {
	var grown []byte
	var reallocated bool
	if cap(a) > 0 {
		// a nil or empty (cap 0) has nothing for Realloc to work from:
		// that's either a true nil or the non-heap-backed literal
		// Malloc(0) returns, so go straight to Malloc for those.
		mu.Lock()
		grown = heap.Realloc(a[:cap(a)], len(a)+len(b))
		mu.Unlock()
		reallocated = grown != nil
	}
	if !reallocated {
		grown = Malloc(len(a) + len(b))
		copy(grown, a)
	}
	out := grown[:len(a)+len(b)]
	copy(out[len(a):], b)
	return out
}
