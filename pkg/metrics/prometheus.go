// Package metrics provides Prometheus metrics for the Iron Trials tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exposed by the tracker.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	factsClassified      *prometheus.CounterVec
	eventsEmitted        *prometheus.CounterVec
	eventsSkipped        *prometheus.CounterVec
	feedSize             *prometheus.GaugeVec
	taxonomyResolutions  *prometheus.CounterVec
	taxonomyLevelEntries prometheus.Gauge

	// Sync transport
	syncRequests        *prometheus.CounterVec
	syncRequestDuration *prometheus.HistogramVec

	// Queues
	queueSize          *prometheus.GaugeVec
	queueCapacity      *prometheus.GaugeVec
	queueEnqueued      *prometheus.CounterVec
	queueDequeued      *prometheus.CounterVec
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActiveCount *prometheus.GaugeVec
	workerJobs        *prometheus.CounterVec
	workerJobLatency  *prometheus.HistogramVec

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	websocketClients    prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager from opts on a fresh registry and returns
// that registry. Call it once at startup, before any metric is recorded.
func Init(opts ...Option) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
	return registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "irontrials",
		subsystem:        "tracker",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.factsClassified = m.counterVec("facts_classified_total",
		"Chat lines recognized as a fact, by fact type", "fact")
	m.eventsEmitted = m.counterVec("events_emitted_total",
		"Achievement events emitted by the evaluator, by kind", "kind")
	m.eventsSkipped = m.counterVec("events_skipped_total",
		"Events dropped before the feed, by reason", "reason")
	m.feedSize = m.gaugeVec("feed_size",
		"Current number of events held in a feed", "feed")
	m.taxonomyResolutions = m.counterVec("taxonomy_resolutions_total",
		"Milestone taxonomy resolutions, by source tier", "source")
	m.taxonomyLevelEntries = m.gauge("taxonomy_level_milestones",
		"Number of level milestones in the active taxonomy")

	m.syncRequests = m.counterVec("sync_requests_total",
		"Requests made to the tracking backend, by operation and result", "operation", "result")
	m.syncRequestDuration = m.histogramVec("sync_request_duration_milliseconds",
		"Tracking backend request latency in milliseconds", "operation")

	m.queueSize = m.gaugeVec("queue_size", "Current queue length", "queue")
	m.queueCapacity = m.gaugeVec("queue_capacity", "Maximum queue capacity", "queue")
	m.queueEnqueued = m.counterVec("queue_enqueue_total", "Items enqueued", "queue")
	m.queueDequeued = m.counterVec("queue_dequeue_total", "Items dequeued", "queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total",
		"Rejected enqueues, by reason", "queue", "reason")

	m.workerActiveCount = m.gaugeVec("worker_active_count", "Number of running workers", "pool")
	m.workerJobs = m.counterVec("worker_jobs_total", "Jobs run by workers, by result", "pool", "result")
	m.workerJobLatency = m.histogramVec("worker_job_latency_milliseconds",
		"Job execution latency in milliseconds", "pool")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total",
		"HTTP error responses by endpoint, method, type and severity", "endpoint", "method", "error_type", "severity")
	m.websocketClients = m.gauge("websocket_clients", "Connected feed stream clients")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordFactClassified counts a recognized chat fact.
func RecordFactClassified(fact string) {
	globalManager.factsClassified.WithLabelValues(fact).Inc()
}

// RecordEventEmitted counts an emitted achievement event.
func RecordEventEmitted(kind string) {
	globalManager.eventsEmitted.WithLabelValues(kind).Inc()
}

// RecordEventSkipped counts an event dropped before reaching the feed.
func RecordEventSkipped(reason string) {
	globalManager.eventsSkipped.WithLabelValues(reason).Inc()
}

// UpdateFeedSize sets the current length of the named feed.
func UpdateFeedSize(feed string, size int) {
	globalManager.feedSize.WithLabelValues(feed).Set(float64(size))
}

// RecordTaxonomyResolution counts which tier produced the active taxonomy.
func RecordTaxonomyResolution(source string, levels int) {
	globalManager.taxonomyResolutions.WithLabelValues(source).Inc()
	globalManager.taxonomyLevelEntries.Set(float64(levels))
}

// RecordSyncRequest records one tracking backend call.
func RecordSyncRequest(operation, result string, latencyMs float64) {
	globalManager.syncRequests.WithLabelValues(operation, result).Inc()
	globalManager.syncRequestDuration.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current length of the named queue.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// UpdateQueueCapacity sets the capacity of the named queue.
func UpdateQueueCapacity(queue string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(queue).Set(float64(capacity))
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue(queue string) {
	globalManager.queueEnqueued.WithLabelValues(queue).Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue(queue string) {
	globalManager.queueDequeued.WithLabelValues(queue).Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(queue, reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(queue, reason).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers in a pool.
func UpdateWorkerActiveCount(pool string, count int) {
	globalManager.workerActiveCount.WithLabelValues(pool).Set(float64(count))
}

// RecordWorkerJob records one job execution.
func RecordWorkerJob(pool, result string, latencyMs float64) {
	globalManager.workerJobs.WithLabelValues(pool, result).Inc()
	globalManager.workerJobLatency.WithLabelValues(pool).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// UpdateWebsocketClients sets the number of connected stream clients.
func UpdateWebsocketClients(count int) {
	globalManager.websocketClients.Set(float64(count))
}

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
