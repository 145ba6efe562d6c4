package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stratocompute/stratos/backend/internal/display"
	"github.com/stratocompute/stratos/backend/internal/domain/memory"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/monitoring"
	"github.com/stratocompute/stratos/backend/internal/logging"
)

const serviceVersion = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *memory.Manager
	metrics *monitoring.Metrics
	display *display.Client
	log     *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(manager *memory.Manager, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.Nop()
	}
	return &Handlers{
		manager: manager,
		metrics: metrics,
		log:     log.WithComponent("http"),
	}
}

// WithDisplay attaches the compositor client so status reports can
// surface its breaker state.
func (h *Handlers) WithDisplay(client *display.Client) *Handlers {
	h.display = client
	return h
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "StratOS Memory Service (Go)",
		"version": serviceVersion,
		"boot_id": h.manager.BootID(),
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"system":      h.manager.SystemStats(),
		"kernel_heap": h.manager.HeapStats(),
		"arena":       h.manager.ArenaInfo(),
		"display":     gin.H{"connected": h.display != nil},
	})
}

// Status reports aggregate service metrics for dashboards that want
// JSON instead of the Prometheus exposition.
func (h *Handlers) Status(c *gin.Context) {
	snap := h.metrics.Snapshot()

	avgLatencyMs := 0.0
	if snap.RequestCount > 0 {
		avgLatencyMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}

	resp := gin.H{
		"boot_id":        h.manager.BootID(),
		"uptime_seconds": h.manager.Uptime().Seconds(),
		"requests": gin.H{
			"total":          snap.TotalRequests,
			"errors":         snap.TotalErrors,
			"avg_latency_ms": avgLatencyMs,
		},
		"apps_live":      snap.LiveApps,
		"ws_connections": snap.ActiveConnections,
	}
	if h.display != nil {
		resp["display_breaker"] = h.display.BreakerState().String()
	}

	c.JSON(http.StatusOK, resp)
}

// GetOverview returns the combined memory overview.
func (h *Handlers) GetOverview(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Overview(c.Request.Context()))
}
