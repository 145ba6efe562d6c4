// Package alloc implements the first-fit free-list allocator shared by
// the kernel heap and every per-app heap.
//
// The allocator manages an abstract offset range and hands out Ref
// handles instead of raw addresses; owners map refs onto their own
// backing buffers. A FreeList keeps free spans sorted by offset and
// coalesces neighbors on release, so a full alloc/free cycle restores
// the free byte count exactly. A Heap layers usage accounting on top:
// cumulative alloc/dealloc counters and a monotone peak mark, with
// used/free recomputed from the free list at every observation.
//
// Neither type locks. Owners serialize access.
package alloc
