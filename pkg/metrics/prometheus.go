// Package metrics provides Prometheus metrics for the All Sports API.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus series exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Rate governor
	rateDecisions      *prometheus.CounterVec
	rateTrackedClients prometheus.Gauge

	// Query resolver
	queryResolved         *prometheus.CounterVec
	queryFallback         *prometheus.CounterVec
	queryValidationErrors *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeRecords *prometheus.GaugeVec
	breakerState *prometheus.GaugeVec

	// Broadcaster
	broadcastTicks      prometheus.Counter
	broadcastDeliveries prometheus.Counter
	broadcastFailures   prometheus.Counter
	broadcastLatency    prometheus.Histogram
	outboxDrops         prometheus.Counter
	subscribers         prometheus.Gauge

	// Import pipeline
	importRecords     *prometheus.CounterVec
	queueSize         prometheus.Gauge
	workerLatency     prometheus.Histogram
	workerActiveCount prometheus.Gauge

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its series.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "allsports",
		subsystem:        "api",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of series
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status code"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.rateDecisions = auto.NewCounterVec(
		m.counterOpts("ratelimit_decisions_total", "Rate governor decisions by outcome (allowed, denied)"),
		[]string{"outcome"},
	)
	m.rateTrackedClients = auto.NewGauge(
		m.gaugeOpts("ratelimit_tracked_clients", "Client identities with a live rate window"),
	)

	m.queryResolved = auto.NewCounterVec(
		m.counterOpts("query_resolved_total", "Successfully resolved queries by collection"),
		[]string{"collection"},
	)
	m.queryFallback = auto.NewCounterVec(
		m.counterOpts("query_fallback_total", "Queries answered from the static fallback dataset"),
		[]string{"collection"},
	)
	m.queryValidationErrors = auto.NewCounterVec(
		m.counterOpts("query_validation_errors_total", "Rejected queries by validation kind"),
		[]string{"kind"},
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_operation_duration_milliseconds", "Store operation latency in milliseconds"),
		[]string{"operation", "collection"},
	)
	m.storeRecords = auto.NewGaugeVec(
		m.gaugeOpts("store_records", "Records held per collection"),
		[]string{"collection"},
	)
	m.breakerState = auto.NewGaugeVec(
		m.gaugeOpts("store_breaker_state", "Store circuit breaker state (0 closed, 1 half-open, 2 open)"),
		[]string{"name"},
	)

	m.broadcastTicks = auto.NewCounter(
		m.counterOpts("broadcast_ticks_total", "Live event ticks generated"),
	)
	m.broadcastDeliveries = auto.NewCounter(
		m.counterOpts("broadcast_deliveries_total", "Live events delivered to subscribers"),
	)
	m.broadcastFailures = auto.NewCounter(
		m.counterOpts("broadcast_failures_total", "Failed deliveries that pruned a subscriber"),
	)
	m.broadcastLatency = auto.NewHistogram(
		m.histogramOpts("broadcast_fanout_duration_milliseconds", "Time to fan one event out to every subscriber"),
	)
	m.outboxDrops = auto.NewCounter(
		m.counterOpts("outbox_drops_total", "Frames rejected by a full or closed subscriber outbox"),
	)
	m.subscribers = auto.NewGauge(
		m.gaugeOpts("live_subscribers", "Currently registered live feed subscribers"),
	)

	m.importRecords = auto.NewCounterVec(
		m.counterOpts("import_records_total", "Imported records by outcome (stored, duplicate, failed)"),
		[]string{"outcome"},
	)
	m.queueSize = auto.NewGauge(
		m.gaugeOpts("import_queue_size", "Pending import jobs"),
	)
	m.workerLatency = auto.NewHistogram(
		m.histogramOpts("import_worker_latency_milliseconds", "Time for a worker to store one record"),
	)
	m.workerActiveCount = auto.NewGauge(
		m.gaugeOpts("import_workers_active", "Running import workers"),
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes in use"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Live goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Most recent GC pause in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.constLabels,
	})
}

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Rate governor

// RecordRateDecision counts one admission decision.
func RecordRateDecision(allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	globalManager.rateDecisions.WithLabelValues(outcome).Inc()
}

// UpdateRateTrackedClients sets the number of live rate windows.
func UpdateRateTrackedClients(n int) {
	globalManager.rateTrackedClients.Set(float64(n))
}

// Query resolver

func RecordQueryResolved(collection string) {
	globalManager.queryResolved.WithLabelValues(collection).Inc()
}

func RecordQueryFallback(collection string) {
	globalManager.queryFallback.WithLabelValues(collection).Inc()
}

func RecordQueryValidationError(kind string) {
	globalManager.queryValidationErrors.WithLabelValues(kind).Inc()
}

// Store

// RecordStoreLatency records how long one store operation took.
func RecordStoreLatency(operation, collection string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation, collection).Observe(latencyMs)
}

// UpdateStoreRecords sets the record count of a collection.
func UpdateStoreRecords(collection string, n int) {
	globalManager.storeRecords.WithLabelValues(collection).Set(float64(n))
}

// UpdateBreakerState publishes a breaker state by its string form.
func UpdateBreakerState(name, state string) error {
	var v float64
	switch state {
	case "closed":
		v = 0
	case "half-open":
		v = 1
	case "open":
		v = 2
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBreakerState, state)
	}
	globalManager.breakerState.WithLabelValues(name).Set(v)
	return nil
}

// Broadcaster

func RecordBroadcastTick() {
	globalManager.broadcastTicks.Inc()
}

func RecordBroadcastDelivery() {
	globalManager.broadcastDeliveries.Inc()
}

func RecordBroadcastFailure() {
	globalManager.broadcastFailures.Inc()
}

func RecordBroadcastLatency(latencyMs float64) {
	globalManager.broadcastLatency.Observe(latencyMs)
}

// RecordOutboxDrop counts a frame a subscriber outbox refused.
func RecordOutboxDrop() {
	globalManager.outboxDrops.Inc()
}

// UpdateSubscribers sets the live subscriber gauge.
func UpdateSubscribers(n int) {
	globalManager.subscribers.Set(float64(n))
}

// Import pipeline

// RecordImport counts one imported record by outcome.
func RecordImport(outcome string) {
	globalManager.importRecords.WithLabelValues(outcome).Inc()
}

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func RecordWorkerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

func UpdateWorkerActiveCount(n int) {
	globalManager.workerActiveCount.Set(float64(n))
}

// Errors

// RecordErrorByComponent counts an error raised inside a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
