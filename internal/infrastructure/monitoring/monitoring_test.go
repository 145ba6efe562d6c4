package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stratocompute/stratos/backend/internal/domain/memory"
)

func newTestManager(t *testing.T) *memory.Manager {
	t.Helper()
	return memory.New(memory.Config{
		HeapSize:    65536,
		ArenaSize:   262144,
		MaxApps:     4,
		RegionAlign: 4096,
	})
}

func TestIndependentRegistries(t *testing.T) {
	// Two collectors in one process must not collide.
	a := NewMetrics()
	b := NewMetrics()
	if a.Registry() == b.Registry() {
		t.Fatal("expected separate registries")
	}
}

func TestRefresherPublish(t *testing.T) {
	m := NewMetrics()
	mgr := newTestManager(t)
	r := NewRefresher(m, mgr, time.Second)

	if !mgr.RegisterApp(7, 8192) {
		t.Fatal("register failed")
	}
	if _, _, err := mgr.AppAlloc(7, 4096, 8); err != nil {
		t.Fatalf("app alloc: %v", err)
	}
	if _, _, err := mgr.Kalloc(256, 8); err != nil {
		t.Fatalf("kalloc: %v", err)
	}

	r.publish()

	if got := testutil.ToFloat64(m.HeapUsed); got != 256 {
		t.Fatalf("heap used gauge = %v, want 256", got)
	}
	if got := testutil.ToFloat64(m.HeapFree); got != 65280 {
		t.Fatalf("heap free gauge = %v, want 65280", got)
	}
	if got := testutil.ToFloat64(m.AppsLive); got != 1 {
		t.Fatalf("apps live gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AppUsed.WithLabelValues("7")); got != 4096 {
		t.Fatalf("app used gauge = %v, want 4096", got)
	}
}

func TestRefresherDropsUnregisteredApps(t *testing.T) {
	m := NewMetrics()
	mgr := newTestManager(t)
	r := NewRefresher(m, mgr, time.Second)

	mgr.RegisterApp(3, 4096)
	r.publish()
	if got := testutil.CollectAndCount(m.AppUsed); got != 1 {
		t.Fatalf("app gauge series = %d, want 1", got)
	}

	mgr.UnregisterApp(3)
	r.publish()
	if got := testutil.CollectAndCount(m.AppUsed); got != 0 {
		t.Fatalf("app gauge series after unregister = %d, want 0", got)
	}
	if got := testutil.ToFloat64(m.AppsLive); got != 0 {
		t.Fatalf("apps live gauge = %v, want 0", got)
	}
}

func TestRefresherLifecycle(t *testing.T) {
	m := NewMetrics()
	mgr := newTestManager(t)
	r := NewRefresher(m, mgr, 10*time.Millisecond)

	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	// The loop publishes once at start even before the first tick.
	if got := testutil.ToFloat64(m.HeapFree); got != 65536 {
		t.Fatalf("heap free gauge = %v, want 65536", got)
	}
}

func TestSnapshotTracksRequests(t *testing.T) {
	m := NewMetrics()

	m.RecordHTTPRequest("GET", "/memory/heap", "200", 10*time.Millisecond, 0, 128)
	m.RecordHTTPRequest("POST", "/memory/heap/alloc", "200", 5*time.Millisecond, 32, 64)
	m.RecordHTTPRequest("POST", "/memory/heap/alloc", "507", time.Millisecond, 32, 48)

	snap := m.Snapshot()
	if snap.TotalRequests != 3 {
		t.Fatalf("total requests = %d, want 3", snap.TotalRequests)
	}
	if snap.TotalErrors != 1 {
		t.Fatalf("total errors = %d, want 1", snap.TotalErrors)
	}
	if snap.RequestCount != 3 || snap.TotalDuration <= 0 {
		t.Fatalf("bad averaging fields: %+v", snap)
	}
}

func TestMemOpCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordMemOp("kernel", "alloc", "ok")
	m.RecordMemOp("kernel", "alloc", "ok")
	m.RecordMemOp("app", "free", "refused")
	m.RecordAllocBytes("kernel", 4096)

	if got := testutil.ToFloat64(m.MemOps.WithLabelValues("kernel", "alloc", "ok")); got != 2 {
		t.Fatalf("kernel alloc counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MemOps.WithLabelValues("app", "free", "refused")); got != 1 {
		t.Fatalf("app free counter = %v, want 1", got)
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/memory/apps/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/memory/apps/"+id, nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}

	// One series for the route template, not one per app id.
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/memory/apps/:id", "200")); got != 3 {
		t.Fatalf("route series = %v, want 3", got)
	}
}

func TestTimerRecordsServiceCall(t *testing.T) {
	m := NewMetrics()

	timer := NewTimer(m, "selftest", "run")
	timer.Stop("success")

	if got := testutil.ToFloat64(m.ServiceCalls.WithLabelValues("selftest", "run", "success")); got != 1 {
		t.Fatalf("service call counter = %v, want 1", got)
	}
}

func TestWSConnectionSnapshot(t *testing.T) {
	m := NewMetrics()

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()

	if got := m.Snapshot().ActiveConnections; got != 1 {
		t.Fatalf("active connections = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.WSConnections); got != 1 {
		t.Fatalf("ws gauge = %v, want 1", got)
	}
}
