package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
	"github.com/stratocompute/stratos/backend/internal/domain/memory/arena"
)

// DefaultHeapSize matches the kernel's static heap buffer.
const DefaultHeapSize = 256 << 10

// Config sizes the subsystem. Zero fields take the kernel defaults.
// TotalRAM comes from boot-time detection and is only echoed in stats;
// it does not size anything.
type Config struct {
	HeapSize    uint32
	ArenaSize   uint32
	MaxApps     int
	RegionAlign uint32
	TotalRAM    uint64
}

// SystemStats is the machine-level summary. Reserved counts only the
// kernel heap: arena space is earmarked for apps, not taken by the OS.
type SystemStats struct {
	Total    uint64 `json:"total"`
	Reserved uint64 `json:"reserved"`
	Free     uint64 `json:"free"`
}

// HeapDetail extends the kernel heap snapshot with fragment visibility
// for diagnostics.
type HeapDetail struct {
	Stats       alloc.Stats `json:"stats"`
	Fragments   int         `json:"fragments"`
	LargestFree uint32      `json:"largest_free"`
}

// Manager owns both memory tiers behind one explicitly constructed
// handle. It is built once at startup and shared by every caller; there
// is no hidden global state and no teardown.
type Manager struct {
	mu      sync.Mutex
	heap    *alloc.Heap
	heapBuf []byte

	arena *arena.Arena

	totalRAM uint64
	bootID   string
	bootedAt time.Time
	display  DisplayProvider
}

// New builds the subsystem with both tiers empty.
func New(cfg Config) *Manager {
	if cfg.HeapSize == 0 {
		cfg.HeapSize = DefaultHeapSize
	}
	return &Manager{
		heap:    alloc.NewHeap(cfg.HeapSize),
		heapBuf: make([]byte, cfg.HeapSize),
		arena: arena.New(arena.Config{
			Size:        cfg.ArenaSize,
			MaxApps:     cfg.MaxApps,
			RegionAlign: cfg.RegionAlign,
		}),
		totalRAM: cfg.TotalRAM,
		bootID:   uuid.New().String(),
		bootedAt: time.Now(),
	}
}

// WithDisplay attaches the compositor collaborator whose buffer stats
// ride along in overview reports.
func (m *Manager) WithDisplay(p DisplayProvider) *Manager {
	m.display = p
	return m
}

// BootID identifies this manager instance for the service surface.
func (m *Manager) BootID() string { return m.bootID }

// Uptime is the time since construction.
func (m *Manager) Uptime() time.Duration { return time.Since(m.bootedAt) }

// Kalloc claims size bytes at align from the kernel heap. The byte
// slice views the allocated range of the heap buffer.
func (m *Manager) Kalloc(size, align uint32) (alloc.Ref, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, err := m.heap.Alloc(size, align)
	if err != nil {
		return 0, nil, err
	}
	off := uint32(ref)
	return ref, m.heapBuf[off : off+size : off+size], nil
}

// Kdealloc returns a kernel-heap block. Size and alignment must match
// the original allocation; the heap does not check.
func (m *Manager) Kdealloc(ref alloc.Ref, size, align uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heap.Free(ref, size, align)
}

// HeapStats snapshots the kernel heap.
func (m *Manager) HeapStats() alloc.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heap.Stats()
}

// HeapDetail snapshots the kernel heap with fragmentation figures.
func (m *Manager) HeapDetail() HeapDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return HeapDetail{
		Stats:       m.heap.Stats(),
		Fragments:   m.heap.Fragments(),
		LargestFree: m.heap.LargestFree(),
	}
}

// SystemStats derives the machine summary. Free saturates at zero when
// detected RAM is smaller than the kernel heap.
func (m *Manager) SystemStats() SystemStats {
	reserved := uint64(m.heap.Total())
	s := SystemStats{Total: m.totalRAM, Reserved: reserved}
	if m.totalRAM > reserved {
		s.Free = m.totalRAM - reserved
	}
	return s
}

// RegisterApp leases a region of at least quota bytes to id. True for
// an id that is already live; false when space or slots run out.
func (m *Manager) RegisterApp(id arena.AppID, quota uint32) bool {
	return m.arena.Register(id, quota)
}

// UnregisterApp releases id's slot and recycles its whole region.
func (m *Manager) UnregisterApp(id arena.AppID) bool {
	return m.arena.Unregister(id)
}

// AppAlloc claims size bytes at align inside id's region.
func (m *Manager) AppAlloc(id arena.AppID, size, align uint32) (alloc.Ref, []byte, error) {
	return m.arena.Alloc(id, size, align)
}

// AppFree releases an app allocation. Refs outside id's granted region
// are refused.
func (m *Manager) AppFree(id arena.AppID, ref alloc.Ref, size, align uint32) bool {
	return m.arena.Free(id, ref, size, align)
}

// AppStats snapshots id's heap. False if id is not registered.
func (m *Manager) AppStats(id arena.AppID) (alloc.Stats, bool) {
	return m.arena.Stats(id)
}

// AppCanReserve reports whether id's cached free total covers bytes.
// Advisory only: fragmentation can defeat an allocation this size.
func (m *Manager) AppCanReserve(id arena.AppID, bytes uint32) bool {
	s, ok := m.arena.Stats(id)
	return ok && s.Free >= bytes
}

// AppRegion reports id's granted region.
func (m *Manager) AppRegion(id arena.AppID) (arena.Region, bool) {
	return m.arena.Region(id)
}

// AppDump copies the raw bytes of id's region for diagnostics.
func (m *Manager) AppDump(id arena.AppID) ([]byte, bool) {
	return m.arena.RegionBytes(id)
}

// AppsSnapshot returns the slot-indexed app table. Empty slots are nil.
func (m *Manager) AppsSnapshot() []*arena.AppOverview {
	return m.arena.Snapshot()
}

// ArenaInfo snapshots arena-level accounting.
func (m *Manager) ArenaInfo() arena.Info {
	return m.arena.Info()
}

// ArenaFragmentation reports the free-region distribution.
func (m *Manager) ArenaFragmentation() arena.FragReport {
	return m.arena.Fragmentation()
}
