package arena

import (
	"sync"

	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
)

// Defaults match the kernel's static configuration.
const (
	DefaultSize        = 1 << 20
	DefaultMaxApps     = 32
	DefaultRegionAlign = 4096
)

// AppID identifies a registered application. IDs are chosen by callers;
// the arena only requires uniqueness among live registrations.
type AppID uint32

// Region is one range of the arena buffer, either granted to an app or
// waiting on the free list.
type Region struct {
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
}

// AppOverview pairs a live app with its stats at that app's slot index.
// App heaps share the kernel heap's stats shape.
type AppOverview struct {
	ID    AppID       `json:"id"`
	Stats alloc.Stats `json:"stats"`
}

// Info summarizes arena-level accounting.
type Info struct {
	Size              uint32 `json:"total"`
	FreeForNewRegions uint32 `json:"free_for_new_regions"`
	BumpOffset        uint32 `json:"bump_offset"`
	FreeRegions       int    `json:"free_regions"`
	LiveApps          int    `json:"live_apps"`
}

// slot is one entry of the fixed table: free, or bound to a live app.
type slot struct {
	live   bool
	id     AppID
	region Region
	heap   *alloc.Heap
}

// Config sizes an arena. Zero fields take the defaults. RegionAlign
// must be a power of two.
type Config struct {
	Size        uint32
	MaxApps     int
	RegionAlign uint32
}

// Arena owns the application buffer and all bookkeeping over it: the
// bump pointer, the freed-region list, and the slot table.
type Arena struct {
	mu          sync.Mutex
	buf         []byte
	size        uint32
	align       uint32
	bump        uint32
	freeRegions []Region
	slots       []slot
}

// New builds an empty arena.
func New(cfg Config) *Arena {
	if cfg.Size == 0 {
		cfg.Size = DefaultSize
	}
	if cfg.MaxApps <= 0 {
		cfg.MaxApps = DefaultMaxApps
	}
	if cfg.RegionAlign == 0 {
		cfg.RegionAlign = DefaultRegionAlign
	}
	return &Arena{
		buf:   make([]byte, cfg.Size),
		size:  cfg.Size,
		align: cfg.RegionAlign,
		slots: make([]slot, cfg.MaxApps),
	}
}

// Register reserves a region of at least quota bytes for id and binds it
// to a free slot with a fresh heap. Registering a live id is a no-op
// success: no second slot, no space consumed, quota ignored. Returns
// false, without mutating anything, when the reusable space totals less
// than quota, when the slot table is full, or when no region can be
// carved.
func (a *Arena) Register(id AppID, quota uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lookup(id) != nil {
		return true
	}
	if a.freeForNewRegions() < quota {
		return false
	}
	// Slot availability is checked before the region is reserved so a
	// full table can never strand a carved region.
	s := a.freeSlot()
	if s == nil {
		return false
	}
	region, ok := a.carveRegion(quota)
	if !ok {
		return false
	}
	s.live = true
	s.id = id
	s.region = region
	s.heap = alloc.NewHeap(region.Size)
	return true
}

// Unregister releases id's slot and returns its whole region to the
// free list. False if id is not registered.
func (a *Arena) Unregister(id AppID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.lookup(id)
	if s == nil {
		return false
	}
	a.freeRegions = append(a.freeRegions, s.region)
	*s = slot{}
	return true
}

// Alloc claims size bytes at align inside id's region. The returned ref
// is arena-absolute and the byte slice views the allocated range of the
// arena buffer. ErrUnknownApp for an unregistered id; alloc.ErrNoSpace
// when the app heap cannot satisfy the request.
func (a *Arena) Alloc(id AppID, size, align uint32) (alloc.Ref, []byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.lookup(id)
	if s == nil {
		return 0, nil, ErrUnknownApp
	}
	// Cheap advisory check: total free below size can never fit.
	if s.heap.FreeBytes() < size {
		return 0, nil, alloc.ErrNoSpace
	}
	inner, err := s.heap.Alloc(size, align)
	if err != nil {
		return 0, nil, err
	}
	abs := s.region.Offset + uint32(inner)
	return alloc.Ref(abs), a.buf[abs : abs+size : abs+size], nil
}

// Free releases an allocation made through Alloc. The ref must lie
// inside id's granted region; anything else is refused with false and
// no state change, which keeps a bad handle from corrupting another
// app's bookkeeping. Size and alignment must match the allocation.
func (a *Arena) Free(id AppID, ref alloc.Ref, size, align uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.lookup(id)
	if s == nil {
		return false
	}
	off := uint32(ref)
	if off < s.region.Offset || off >= s.region.Offset+s.region.Size {
		return false
	}
	s.heap.Free(alloc.Ref(off-s.region.Offset), size, align)
	return true
}

// Stats snapshots id's heap. False if id is not registered.
func (a *Arena) Stats(id AppID) (alloc.Stats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.lookup(id)
	if s == nil {
		return alloc.Stats{}, false
	}
	return s.heap.Stats(), true
}

// FreeForNewRegions is the byte total a future registration could draw
// from: untouched bump space plus every freed region. Fragmentation can
// make a quota up to this value unsatisfiable; callers must treat it as
// an upper bound, not a promise.
func (a *Arena) FreeForNewRegions() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freeForNewRegions()
}

// Info snapshots arena-level accounting.
func (a *Arena) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()

	live := 0
	for i := range a.slots {
		if a.slots[i].live {
			live++
		}
	}
	return Info{
		Size:              a.size,
		FreeForNewRegions: a.freeForNewRegions(),
		BumpOffset:        a.bump,
		FreeRegions:       len(a.freeRegions),
		LiveApps:          live,
	}
}

// Snapshot recomputes stats for every live slot. The result is indexed
// by slot, with nil holes for free slots; indexes are not stable
// identities across register/unregister cycles.
func (a *Arena) Snapshot() []*AppOverview {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*AppOverview, len(a.slots))
	for i := range a.slots {
		if a.slots[i].live {
			out[i] = &AppOverview{ID: a.slots[i].id, Stats: a.slots[i].heap.Stats()}
		}
	}
	return out
}

// RegionBytes copies the raw bytes of id's granted region for
// diagnostic dumps. False if id is not registered.
func (a *Arena) RegionBytes(id AppID) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.lookup(id)
	if s == nil {
		return nil, false
	}
	out := make([]byte, s.region.Size)
	copy(out, a.buf[s.region.Offset:s.region.Offset+s.region.Size])
	return out, true
}

// Region reports id's granted region. False if id is not registered.
func (a *Arena) Region(id AppID) (Region, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.lookup(id)
	if s == nil {
		return Region{}, false
	}
	return s.region, true
}

func (a *Arena) lookup(id AppID) *slot {
	for i := range a.slots {
		if a.slots[i].live && a.slots[i].id == id {
			return &a.slots[i]
		}
	}
	return nil
}

func (a *Arena) freeSlot() *slot {
	for i := range a.slots {
		if !a.slots[i].live {
			return &a.slots[i]
		}
	}
	return nil
}

func (a *Arena) freeForNewRegions() uint32 {
	total := a.size - a.bump
	for _, r := range a.freeRegions {
		total += r.Size
	}
	return total
}

// carveRegion reserves a region of at least quota bytes: the first freed
// region that fits is granted whole; otherwise the bump pointer advances
// from its next aligned offset. Rounding can skip bytes between the old
// bump offset and the aligned start; those bytes never enter the free
// list.
func (a *Arena) carveRegion(quota uint32) (Region, bool) {
	for i, r := range a.freeRegions {
		if r.Size >= quota {
			a.freeRegions = append(a.freeRegions[:i], a.freeRegions[i+1:]...)
			return r, true
		}
	}
	start := alloc.AlignUp(a.bump, a.align)
	end := uint64(start) + uint64(quota)
	if start < a.bump || end > uint64(a.size) {
		return Region{}, false
	}
	a.bump = uint32(end)
	return Region{Offset: start, Size: quota}, true
}
