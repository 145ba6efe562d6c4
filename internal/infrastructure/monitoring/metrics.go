package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Memory operation metrics
	MemOps     *prometheus.CounterVec
	AllocBytes *prometheus.HistogramVec

	// Memory state gauges, published by the Refresher
	HeapUsed    prometheus.Gauge
	HeapFree    prometheus.Gauge
	HeapPeak    prometheus.Gauge
	ArenaFree   prometheus.Gauge
	FreeRegions prometheus.Gauge
	AppsLive    prometheus.Gauge
	AppUsed     *prometheus.GaugeVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	LiveApps          int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector on its own registry so
// several instances can coexist in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratos_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratos_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratos_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratos_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Memory operation metrics
		MemOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratos_memory_ops_total",
				Help: "Total number of memory operations",
			},
			[]string{"tier", "op", "status"},
		),
		AllocBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratos_memory_alloc_bytes",
				Help:    "Size of successful allocations in bytes",
				Buckets: []float64{16, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576},
			},
			[]string{"tier"},
		),

		// Memory state gauges
		HeapUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_memory_heap_used_bytes",
				Help: "Bytes currently allocated from the kernel heap",
			},
		),
		HeapFree: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_memory_heap_free_bytes",
				Help: "Bytes currently free in the kernel heap",
			},
		),
		HeapPeak: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_memory_heap_peak_bytes",
				Help: "Highest kernel heap usage observed since boot",
			},
		),
		ArenaFree: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_memory_arena_free_bytes",
				Help: "Arena bytes available for new app regions",
			},
		),
		FreeRegions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_memory_arena_free_regions",
				Help: "Number of reusable freed regions in the arena",
			},
		),
		AppsLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_memory_apps_live",
				Help: "Number of registered apps",
			},
		),
		AppUsed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stratos_memory_app_used_bytes",
				Help: "Bytes currently allocated by each app",
			},
			[]string{"app_id"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratos_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratos_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratos_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratos_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratos_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	return m
}

// Handler serves this collector set in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordMemOp records a memory operation outcome. Tier is "kernel" or
// "app"; status is "ok" or "refused".
func (m *Metrics) RecordMemOp(tier, op, status string) {
	m.MemOps.WithLabelValues(tier, op, status).Inc()
}

// RecordAllocBytes records the size of a successful allocation.
func (m *Metrics) RecordAllocBytes(tier string, size uint32) {
	m.AllocBytes.WithLabelValues(tier).Observe(float64(size))
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetAppsLive sets the number of registered apps
func (m *Metrics) SetAppsLive(count int) {
	m.AppsLive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.LiveApps = int64(count)
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current aggregate values for the JSON status API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
