package alloc

// Ref is an offset handle into an allocator's managed range. Refs are
// plain offsets, so bookkeeping never depends on where the backing
// buffer lives.
type Ref uint32

// span is one free range. Spans stay sorted by offset and never overlap.
type span struct {
	off  uint32
	size uint32
	next *span
}

// FreeList is a first-fit allocator over the offset range [0, total).
type FreeList struct {
	total uint32
	free  uint32
	head  *span
}

// NewFreeList creates an allocator managing [0, total) with the whole
// range free.
func NewFreeList(total uint32) *FreeList {
	f := &FreeList{total: total, free: total}
	if total > 0 {
		f.head = &span{off: 0, size: total}
	}
	return f
}

// AlignUp rounds v up to the next multiple of align, which must be a
// power of two.
func AlignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

func powerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// Alloc claims size bytes at the given alignment. It scans free spans in
// address order and carves the first that fits, keeping any leading
// alignment gap and trailing remainder on the free list. A zero size
// succeeds without consuming space.
func (f *FreeList) Alloc(size, align uint32) (Ref, error) {
	if !powerOfTwo(align) {
		return 0, ErrBadAlign
	}
	if size == 0 {
		return 0, nil
	}
	var prev *span
	for s := f.head; s != nil; prev, s = s, s.next {
		start := AlignUp(s.off, align)
		end := uint64(start) + uint64(size)
		if start < s.off || end > uint64(s.off)+uint64(s.size) {
			continue
		}
		f.carve(prev, s, start, size)
		f.free -= size
		return Ref(start), nil
	}
	return 0, ErrNoSpace
}

// carve removes [start, start+size) from span s, whose predecessor is
// prev (nil when s is the head).
func (f *FreeList) carve(prev, s *span, start, size uint32) {
	lead := start - s.off
	tail := s.off + s.size - (start + size)
	switch {
	case lead == 0 && tail == 0:
		if prev == nil {
			f.head = s.next
		} else {
			prev.next = s.next
		}
	case lead == 0:
		s.off = start + size
		s.size = tail
	case tail == 0:
		s.size = lead
	default:
		s.size = lead
		s.next = &span{off: start + size, size: tail, next: s.next}
	}
}

// Free returns [off, off+size) to the list, merging with adjacent spans.
// The range must exactly match a prior Alloc; mismatches corrupt the
// accounting and are not detected here. A zero size is a no-op.
func (f *FreeList) Free(ref Ref, size uint32) {
	if size == 0 {
		return
	}
	off := uint32(ref)
	var prev *span
	next := f.head
	for next != nil && next.off < off {
		prev, next = next, next.next
	}
	f.free += size

	if prev != nil && prev.off+prev.size == off {
		prev.size += size
		if next != nil && prev.off+prev.size == next.off {
			prev.size += next.size
			prev.next = next.next
		}
		return
	}
	if next != nil && off+size == next.off {
		next.off = off
		next.size += size
		return
	}
	s := &span{off: off, size: size, next: next}
	if prev == nil {
		f.head = s
	} else {
		prev.next = s
	}
}

// FreeBytes is the exact sum of free span sizes.
func (f *FreeList) FreeBytes() uint32 { return f.free }

// Total is the size of the managed range.
func (f *FreeList) Total() uint32 { return f.total }

// Fragments is the number of free spans.
func (f *FreeList) Fragments() int {
	n := 0
	for s := f.head; s != nil; s = s.next {
		n++
	}
	return n
}

// LargestFree is the size of the largest free span, the biggest single
// allocation that could currently succeed at alignment 1.
func (f *FreeList) LargestFree() uint32 {
	var max uint32
	for s := f.head; s != nil; s = s.next {
		if s.size > max {
			max = s.size
		}
	}
	return max
}
