package memory

import (
	"context"

	"github.com/stratocompute/stratos/backend/internal/display"
	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
	"github.com/stratocompute/stratos/backend/internal/domain/memory/arena"
)

// DisplayProvider supplies the compositor's buffer statistics for
// overview reports. A nil return means no display is attached. The
// value is never interpreted here, only passed through.
type DisplayProvider interface {
	BufferStats(ctx context.Context) *display.BufferStats
}

// Overview is the cross-tier report: system totals, kernel heap, arena
// accounting, one slot-indexed entry per live app (nil holes for free
// slots), and the opaque display-buffer statistics.
type Overview struct {
	System          SystemStats          `json:"system"`
	KernelHeap      alloc.Stats          `json:"kernel_heap"`
	ArenaTotal      uint32               `json:"arena_total"`
	ArenaFreeForNew uint32               `json:"arena_free_for_new_regions"`
	Apps            []*arena.AppOverview `json:"apps"`
	Display         *display.BufferStats `json:"display,omitempty"`
}

// Overview gathers every tier. The two locks are taken one at a time,
// never nested, and the display provider is consulted outside both.
// Read-only aside from the stats recomputation itself.
func (m *Manager) Overview(ctx context.Context) Overview {
	o := Overview{
		System:     m.SystemStats(),
		KernelHeap: m.HeapStats(),
	}
	info := m.arena.Info()
	o.ArenaTotal = info.Size
	o.ArenaFreeForNew = info.FreeForNewRegions
	o.Apps = m.arena.Snapshot()
	if m.display != nil {
		o.Display = m.display.BufferStats(ctx)
	}
	return o
}
