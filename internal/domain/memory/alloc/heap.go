package alloc

// Stats is a point-in-time snapshot of a heap. Used and Free come from
// the free list at observation time, never from running totals, so
// Used+Free == Total holds for every snapshot.
type Stats struct {
	Used     uint32 `json:"used"`
	Free     uint32 `json:"free"`
	Total    uint32 `json:"total"`
	PeakUsed uint32 `json:"peak_used"`
	Allocs   uint64 `json:"alloc_count"`
	Deallocs uint64 `json:"dealloc_count"`
}

// Heap couples a FreeList with the usage accounting both heap tiers
// share: cumulative alloc/dealloc counters and a peak mark that never
// decreases.
type Heap struct {
	list     *FreeList
	peak     uint32
	allocs   uint64
	deallocs uint64
}

// NewHeap builds a zeroed heap over [0, total).
func NewHeap(total uint32) *Heap {
	return &Heap{list: NewFreeList(total)}
}

// Alloc claims size bytes at align. Counters and the peak mark move only
// on success; a failed allocation leaves the heap untouched.
func (h *Heap) Alloc(size, align uint32) (Ref, error) {
	ref, err := h.list.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	h.allocs++
	if used := h.list.total - h.list.free; used > h.peak {
		h.peak = used
	}
	return ref, nil
}

// Free releases a block. Size and alignment must match the original
// allocation; the heap does not check.
func (h *Heap) Free(ref Ref, size, align uint32) {
	h.list.Free(ref, size)
	h.deallocs++
}

// FreeBytes is the current free byte count.
func (h *Heap) FreeBytes() uint32 { return h.list.FreeBytes() }

// Total is the managed range size.
func (h *Heap) Total() uint32 { return h.list.Total() }

// Fragments is the free span count.
func (h *Heap) Fragments() int { return h.list.Fragments() }

// LargestFree is the largest single allocation that could succeed now.
func (h *Heap) LargestFree() uint32 { return h.list.LargestFree() }

// Stats snapshots the heap.
func (h *Heap) Stats() Stats {
	free := h.list.FreeBytes()
	return Stats{
		Used:     h.list.Total() - free,
		Free:     free,
		Total:    h.list.Total(),
		PeakUsed: h.peak,
		Allocs:   h.allocs,
		Deallocs: h.deallocs,
	}
}
