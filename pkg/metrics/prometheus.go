// Package metrics provides Prometheus metrics for the xpboard ingestion
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the xpboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Load orchestration
	loadsStarted   prometheus.Counter
	loadsCompleted prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter

	// Refresh pipeline stages
	fetchLatency     prometheus.Histogram
	extractLatency   prometheus.Histogram
	transformLatency prometheus.Histogram
	aggregateLatency prometheus.Histogram
	refreshFailures  *prometheus.CounterVec

	// Validation
	validationErrors *prometheus.CounterVec

	// Snapshot store
	snapshotGetLatency prometheus.Histogram
	snapshotPutLatency prometheus.Histogram
	snapshotErrors     *prometheus.CounterVec

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Orchestrator state
	inflightRefreshes prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "xpboard",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.loadsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loads_started_total",
		Help:      "Total number of load requests received",
	})

	m.loadsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loads_completed_total",
		Help:      "Total number of load requests that delivered a refreshed result",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of load requests served first from the snapshot store",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of load requests with no cached snapshot",
	})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_milliseconds",
		Help:      "Histogram of artifact list+download latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.extractLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "extract_latency_milliseconds",
		Help:      "Histogram of archive extraction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.transformLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transform_latency_milliseconds",
		Help:      "Histogram of payload transform latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.aggregateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_latency_milliseconds",
		Help:      "Histogram of full aggregation pass latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.refreshFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_failures_total",
		Help:      "Total number of refresh failures by pipeline phase",
	}, []string{"phase"})

	m.validationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_errors_total",
		Help:      "Total number of validation violations by error class",
	}, []string{"class"})

	m.snapshotGetLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_get_latency_milliseconds",
		Help:      "Histogram of snapshot store read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotPutLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_put_latency_milliseconds",
		Help:      "Histogram of snapshot store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_errors_total",
		Help:      "Total number of snapshot store errors by operation",
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.inflightRefreshes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inflight_refreshes",
		Help:      "Number of refreshes currently in flight",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Histogram of GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// GetRegistry returns the custom Prometheus registry used by the global
// manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordLoadStarted increments the load request counter.
func RecordLoadStarted() { globalManager.loadsStarted.Inc() }

// RecordLoadCompleted increments the completed load counter.
func RecordLoadCompleted() { globalManager.loadsCompleted.Inc() }

// RecordCacheHit increments the snapshot cache hit counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss increments the snapshot cache miss counter.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordFetchLatency observes artifact fetch latency in milliseconds.
func RecordFetchLatency(ms float64) { globalManager.fetchLatency.Observe(ms) }

// RecordExtractLatency observes extraction latency in milliseconds.
func RecordExtractLatency(ms float64) { globalManager.extractLatency.Observe(ms) }

// RecordTransformLatency observes transform latency in milliseconds.
func RecordTransformLatency(ms float64) { globalManager.transformLatency.Observe(ms) }

// RecordAggregateLatency observes aggregation pass latency in milliseconds.
func RecordAggregateLatency(ms float64) { globalManager.aggregateLatency.Observe(ms) }

// RecordRefreshFailure increments the refresh failure counter for a phase.
func RecordRefreshFailure(phase string) {
	globalManager.refreshFailures.WithLabelValues(phase).Inc()
}

// RecordValidationError increments the validation error counter for a class.
func RecordValidationError(class string) {
	globalManager.validationErrors.WithLabelValues(class).Inc()
}

// RecordSnapshotGetLatency observes snapshot read latency in milliseconds.
func RecordSnapshotGetLatency(ms float64) { globalManager.snapshotGetLatency.Observe(ms) }

// RecordSnapshotPutLatency observes snapshot write latency in milliseconds.
func RecordSnapshotPutLatency(ms float64) { globalManager.snapshotPutLatency.Observe(ms) }

// RecordSnapshotError increments the snapshot error counter for an operation.
func RecordSnapshotError(op string) {
	globalManager.snapshotErrors.WithLabelValues(op).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

// UpdateInflightRefreshes sets the in-flight refresh gauge.
func UpdateInflightRefreshes(n int) { globalManager.inflightRefreshes.Set(float64(n)) }

// UpdateSystemMemoryUsage sets the allocated memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// RecordSystemGCPauseTime observes GC pause time in milliseconds.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Observe(ms) }
