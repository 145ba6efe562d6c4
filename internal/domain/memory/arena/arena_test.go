package arena

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
)

func TestAppLifecycle(t *testing.T) {
	a := New(Config{})

	if !a.Register(42, 65536) {
		t.Fatal("Register failed on empty arena")
	}

	ref, payload, err := a.Alloc(42, 4096, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if len(payload) != 4096 {
		t.Errorf("Expected 4096-byte payload view, got %d", len(payload))
	}

	s, ok := a.Stats(42)
	if !ok {
		t.Fatal("Stats missing for live app")
	}
	want := alloc.Stats{Used: 4096, Free: 61440, Total: 65536, PeakUsed: 4096, Allocs: 1, Deallocs: 0}
	if s != want {
		t.Errorf("Stats after alloc = %+v, want %+v", s, want)
	}

	if !a.Free(42, ref, 4096, 8) {
		t.Fatal("Free refused a valid ref")
	}
	s, _ = a.Stats(42)
	if s.Used != 0 || s.Free != 65536 || s.Deallocs != 1 {
		t.Errorf("Stats after free = %+v", s)
	}
	if s.PeakUsed != 4096 {
		t.Errorf("Peak dropped after free: %d", s.PeakUsed)
	}

	if !a.Unregister(42) {
		t.Fatal("Unregister failed")
	}
	if _, ok := a.Stats(42); ok {
		t.Error("Stats still present after unregister")
	}
	if a.FreeForNewRegions() != DefaultSize {
		t.Errorf("Expected full arena reusable, got %d", a.FreeForNewRegions())
	}
}

func TestRegisterIdempotent(t *testing.T) {
	a := New(Config{})

	a.Register(7, 8192)
	if _, _, err := a.Alloc(7, 128, 8); err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	before, _ := a.Stats(7)
	reusable := a.FreeForNewRegions()

	// Re-registering a live id succeeds without a second slot, without
	// consuming space, and without touching existing stats. The quota
	// argument is ignored.
	if !a.Register(7, 999999) {
		t.Fatal("Re-register of live id should succeed")
	}
	after, _ := a.Stats(7)
	if after != before {
		t.Errorf("Re-register changed stats: %+v -> %+v", before, after)
	}
	if a.FreeForNewRegions() != reusable {
		t.Errorf("Re-register consumed space: %d -> %d", reusable, a.FreeForNewRegions())
	}
	if got := a.Info().LiveApps; got != 1 {
		t.Errorf("Expected 1 live app, got %d", got)
	}
}

func TestRegisterQuotaTooLarge(t *testing.T) {
	a := New(Config{})
	before := a.FreeForNewRegions()

	if a.Register(1, DefaultSize+1) {
		t.Fatal("Register should fail for quota above arena size")
	}
	if a.FreeForNewRegions() != before {
		t.Errorf("Failed register changed reusable space: %d -> %d", before, a.FreeForNewRegions())
	}
	if _, ok := a.Stats(1); ok {
		t.Error("Failed register left a live slot")
	}
}

func TestSlotTableExhaustion(t *testing.T) {
	a := New(Config{})

	for id := AppID(1); id <= DefaultMaxApps; id++ {
		if !a.Register(id, 1) {
			t.Fatalf("Register %d failed with slots available", id)
		}
	}
	info := a.Info()
	if info.LiveApps != DefaultMaxApps {
		t.Fatalf("Expected %d live apps, got %d", DefaultMaxApps, info.LiveApps)
	}

	// Space remains, but the slot table is full.
	if a.Register(DefaultMaxApps+1, 1) {
		t.Fatal("Register should fail when every slot is live")
	}
	if got := a.Info(); got != info {
		t.Errorf("Failed register mutated arena: %+v -> %+v", info, got)
	}

	// Releasing any slot makes the same registration succeed.
	a.Unregister(5)
	if !a.Register(DefaultMaxApps+1, 1) {
		t.Error("Register should reuse the freed slot")
	}
}

func TestRegionReuseIdenticalBase(t *testing.T) {
	a := New(Config{})

	a.Register(1, 65536)
	first, _ := a.Region(1)
	a.Unregister(1)

	// The freed region is granted whole to the next registration that
	// fits inside it, even when the quota is smaller.
	if !a.Register(2, 4096) {
		t.Fatal("Register failed with a reusable region available")
	}
	second, _ := a.Region(2)
	if second.Offset != first.Offset {
		t.Errorf("Expected identical base %d, got %d", first.Offset, second.Offset)
	}
	if second.Size != 65536 {
		t.Errorf("Expected whole 65536-byte region granted, got %d", second.Size)
	}
	s, _ := a.Stats(2)
	if s.Total != 65536 || s.Free != 65536 {
		t.Errorf("Slot heap must span the whole grant: %+v", s)
	}
	if a.Info().FreeRegions != 0 {
		t.Errorf("Granted region still on free list")
	}
}

func TestBumpAlignment(t *testing.T) {
	a := New(Config{})

	a.Register(1, 100)
	a.Register(2, 100)
	r1, _ := a.Region(1)
	r2, _ := a.Region(2)
	if r1.Offset != 0 || r2.Offset != 4096 {
		t.Errorf("Expected regions at 0 and 4096, got %d and %d", r1.Offset, r2.Offset)
	}

	// Bytes skipped by the alignment round-up never come back.
	want := uint32(DefaultSize - (4096 + 100))
	if got := a.FreeForNewRegions(); got != want {
		t.Errorf("Expected reusable %d after alignment gap, got %d", want, got)
	}
}

func TestFreedRegionsDoNotCoalesce(t *testing.T) {
	a := New(Config{Size: 16384, MaxApps: 4, RegionAlign: 4096})

	a.Register(1, 4096)
	a.Register(2, 4096)
	a.Unregister(1)
	a.Unregister(2)
	if got := a.Info().FreeRegions; got != 2 {
		t.Fatalf("Expected 2 free regions, got %d", got)
	}

	// 8192 reusable bytes sit adjacent on the free list, yet neither
	// fragment can serve an 8192-byte quota; the grant must come from
	// untouched bump space.
	if !a.Register(3, 8192) {
		t.Fatal("Register failed with bump space available")
	}
	r, _ := a.Region(3)
	if r.Offset != 8192 {
		t.Errorf("Expected bump grant at 8192, got %d", r.Offset)
	}
	if got := a.Info().FreeRegions; got != 2 {
		t.Errorf("Fragments were consumed or merged: %d regions", got)
	}
}

func TestFreeForNewRegionsOverstates(t *testing.T) {
	a := New(Config{Size: 12288, MaxApps: 4, RegionAlign: 4096})

	a.Register(1, 4096)
	a.Register(2, 4096)
	a.Register(3, 4096)
	a.Unregister(1)
	a.Unregister(3)

	// Two 4096-byte fragments: the sum says 8192, but no single region
	// of 8192 exists anywhere.
	if got := a.FreeForNewRegions(); got != 8192 {
		t.Fatalf("Expected reusable sum 8192, got %d", got)
	}
	if a.Register(4, 8192) {
		t.Error("Register should fail despite a sufficient reusable sum")
	}
}

func TestAllocUnknownApp(t *testing.T) {
	a := New(Config{})

	if _, _, err := a.Alloc(99, 64, 8); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("Expected ErrUnknownApp, got %v", err)
	}
	if a.Free(99, 0, 64, 8) {
		t.Error("Free for unknown app should refuse")
	}
	if _, ok := a.Stats(99); ok {
		t.Error("Stats for unknown app should be absent")
	}
	if a.Unregister(99) {
		t.Error("Unregister for unknown app should refuse")
	}
}

func TestAllocExhaustsQuota(t *testing.T) {
	a := New(Config{})
	a.Register(1, 8192)

	if _, _, err := a.Alloc(1, 8192, 8); err != nil {
		t.Fatalf("Full-region alloc failed: %v", err)
	}
	if _, _, err := a.Alloc(1, 1, 1); !errors.Is(err, alloc.ErrNoSpace) {
		t.Errorf("Expected ErrNoSpace on exhausted app heap, got %v", err)
	}

	s, _ := a.Stats(1)
	if s.Allocs != 1 {
		t.Errorf("Failed alloc bumped the counter: %d", s.Allocs)
	}
}

func TestCrossAppFreeRefused(t *testing.T) {
	a := New(Config{})
	a.Register(1, 4096)
	a.Register(2, 4096)

	ref, _, err := a.Alloc(1, 256, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}

	// App 2 presenting app 1's ref is outside app 2's region.
	if a.Free(2, ref, 256, 8) {
		t.Fatal("Free must refuse a ref outside the caller's region")
	}
	s1, _ := a.Stats(1)
	if s1.Used != 256 || s1.Deallocs != 0 {
		t.Errorf("Cross-app refusal touched app 1 bookkeeping: %+v", s1)
	}
	s2, _ := a.Stats(2)
	if s2.Used != 0 || s2.Deallocs != 0 {
		t.Errorf("Cross-app refusal touched app 2 bookkeeping: %+v", s2)
	}

	// Out-of-region refs are refused even for the owning app.
	outside := alloc.Ref(8192)
	if a.Free(1, outside, 16, 8) {
		t.Error("Free must refuse a ref beyond the granted region")
	}
}

func TestSnapshotSlotIndexed(t *testing.T) {
	a := New(Config{})
	a.Register(10, 4096)
	a.Register(20, 4096)
	a.Register(30, 4096)
	a.Unregister(20)

	snap := a.Snapshot()
	if len(snap) != DefaultMaxApps {
		t.Fatalf("Expected %d slots, got %d", DefaultMaxApps, len(snap))
	}
	if snap[0] == nil || snap[0].ID != 10 {
		t.Errorf("slot 0 = %+v, want app 10", snap[0])
	}
	if snap[1] != nil {
		t.Errorf("slot 1 should be a hole, got %+v", snap[1])
	}
	if snap[2] == nil || snap[2].ID != 30 {
		t.Errorf("slot 2 = %+v, want app 30", snap[2])
	}

	// The next registration takes the lowest free slot; indexes are not
	// stable identities.
	a.Register(40, 4096)
	snap = a.Snapshot()
	if snap[1] == nil || snap[1].ID != 40 {
		t.Errorf("slot 1 = %+v, want app 40", snap[1])
	}
}

func TestPayloadViewVisibleInRegionDump(t *testing.T) {
	a := New(Config{})
	a.Register(1, 8192)

	ref, payload, err := a.Alloc(1, 64, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	for i := range payload {
		payload[i] = byte(i)
	}

	dump, ok := a.RegionBytes(1)
	if !ok {
		t.Fatal("RegionBytes missing for live app")
	}
	region, _ := a.Region(1)
	start := uint32(ref) - region.Offset
	if !bytes.Equal(dump[start:start+64], payload) {
		t.Error("Region dump does not reflect payload writes")
	}
}

func TestStatsInvariantUnderChurn(t *testing.T) {
	a := New(Config{})
	ids := []AppID{1, 2, 3}
	for _, id := range ids {
		if !a.Register(id, 32768) {
			t.Fatalf("Register %d failed", id)
		}
	}

	type blk struct {
		ref  alloc.Ref
		size uint32
	}
	live := make(map[AppID][]blk)

	sizes := []uint32{64, 512, 128, 2048, 256}
	for round := 0; round < 60; round++ {
		id := ids[round%len(ids)]
		size := sizes[round%len(sizes)]
		if ref, _, err := a.Alloc(id, size, 8); err == nil {
			live[id] = append(live[id], blk{ref, size})
		}
		if round%3 == 2 && len(live[id]) > 0 {
			b := live[id][0]
			if !a.Free(id, b.ref, b.size, 8) {
				t.Fatalf("round %d: Free refused a live ref", round)
			}
			live[id] = live[id][1:]
		}

		for _, check := range ids {
			s, ok := a.Stats(check)
			if !ok {
				t.Fatalf("round %d: stats missing for app %d", round, check)
			}
			if s.Used+s.Free != s.Total {
				t.Fatalf("round %d app %d: used %d + free %d != total %d", round, check, s.Used, s.Free, s.Total)
			}
		}
	}
}
