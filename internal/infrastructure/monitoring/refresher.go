package monitoring

import (
	"strconv"
	"time"

	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
	"github.com/stratocompute/stratos/backend/internal/domain/memory/arena"
)

// StatsSource yields the memory state the refresher publishes.
type StatsSource interface {
	HeapStats() alloc.Stats
	ArenaInfo() arena.Info
	AppsSnapshot() []*arena.AppOverview
}

// Refresher periodically publishes memory state into the gauges so
// scrapes see fresh values without querying the manager themselves.
type Refresher struct {
	metrics  *Metrics
	source   StatsSource
	interval time.Duration

	seen    map[uint32]struct{}
	stop    chan struct{}
	done    chan struct{}
	started bool
	stopped bool
}

// NewRefresher creates a refresher. Start launches the loop.
func NewRefresher(metrics *Metrics, source StatsSource, interval time.Duration) *Refresher {
	return &Refresher{
		metrics:  metrics,
		source:   source,
		interval: interval,
		seen:     make(map[uint32]struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the refresh loop. A second Start is a no-op.
func (r *Refresher) Start() {
	if r.started {
		return
	}
	r.started = true
	go r.run()
}

// Stop halts the loop and waits for it to exit. Safe without a prior
// Start and safe to call twice.
func (r *Refresher) Stop() {
	if !r.started || r.stopped {
		return
	}
	r.stopped = true
	close(r.stop)
	<-r.done
}

func (r *Refresher) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.publish()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.publish()
		}
	}
}

// publish pushes one snapshot of memory state into the gauges.
func (r *Refresher) publish() {
	m := r.metrics
	heap := r.source.HeapStats()
	info := r.source.ArenaInfo()

	m.HeapUsed.Set(float64(heap.Used))
	m.HeapFree.Set(float64(heap.Free))
	m.HeapPeak.Set(float64(heap.PeakUsed))
	m.ArenaFree.Set(float64(info.FreeForNewRegions))
	m.FreeRegions.Set(float64(info.FreeRegions))

	live := 0
	next := make(map[uint32]struct{}, len(r.seen))
	for _, app := range r.source.AppsSnapshot() {
		if app == nil {
			continue
		}
		live++
		id := uint32(app.ID)
		m.AppUsed.WithLabelValues(formatAppID(id)).Set(float64(app.Stats.Used))
		next[id] = struct{}{}
	}

	// Drop gauges for apps that unregistered since the last pass.
	for id := range r.seen {
		if _, ok := next[id]; !ok {
			m.AppUsed.DeleteLabelValues(formatAppID(id))
		}
	}
	r.seen = next

	m.SetAppsLive(live)
	m.UpdateUptime()
}

func formatAppID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
