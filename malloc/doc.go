// Package malloc implements a boundary-tag dynamic memory allocator over a
// single contiguous, growable-but-not-shrinkable heap.
//
// A Heap owns a byte arena (grown on demand through the sbrk.Sbrk
// collaborator) and addresses every block by an int byte offset into that
// arena rather than by unsafe.Pointer, so free-list links stored in the
// heap do not depend on the arena's address. Payloads are handed to callers
// as slices into the arena, so the sbrk.Sbrk must never move memory it has
// already committed when it grows. Two free-
// block index strategies are available: NewExplicitHeap gives a single
// LIFO doubly linked free list, NewSegregatedHeap gives a 20-class
// segregated array with realloc-in-place growth and a reservation-tag
// mechanism (see Heap.Realloc).
package malloc
