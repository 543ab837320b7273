// Package metrics provides Prometheus metrics for the expertgraph service.
package metrics

import (
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for recommendation and refresh counters.
const (
	OutcomeOK      = "ok"
	OutcomeCached  = "cached"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Recommendation metrics
	recommendations        *prometheus.CounterVec
	recommendationLatency  prometheus.Histogram
	recommendationRankSize prometheus.Histogram

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Repository metrics
	repositoryQueries      *prometheus.CounterVec
	repositoryQueryLatency *prometheus.HistogramVec
	breakerState           *prometheus.GaugeVec
	breakerRejections      *prometheus.CounterVec

	// Graph assembly metrics
	graphNodes          *prometheus.HistogramVec
	graphDroppedTriples *prometheus.CounterVec

	// Search metrics
	searchQueries     *prometheus.CounterVec
	searchLatency     prometheus.Histogram
	searchIndexedDocs prometheus.Gauge

	// Index pipeline metrics
	indexRefreshes     *prometheus.CounterVec
	indexSkipped       *prometheus.CounterVec
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager and the custom registry it registers with. The
// custom registry avoids default Go metrics.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry behind /metrics
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it before GetRegistry is handed to an HTTP handler.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func manager() *Manager {
	return globalManager.Load()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "expertgraph",
		subsystem:        "",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	sizeBuckets := []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

	m.recommendations = m.counterVec("recommendations_total",
		"Total number of recommendation requests by outcome", "outcome")
	m.recommendationLatency = m.histogram("recommendation_latency_milliseconds",
		"End-to-end recommendation latency in milliseconds", m.histogramBuckets)
	m.recommendationRankSize = m.histogram("recommendation_candidates",
		"Number of candidates considered per recommendation", sizeBuckets)

	m.cacheHits = m.counterVec("cache_hits_total", "Cache hits by cache name", "cache")
	m.cacheMisses = m.counterVec("cache_misses_total", "Cache misses by cache name", "cache")

	m.repositoryQueries = m.counterVec("repository_queries_total",
		"Repository queries by operation and status", "operation", "status")
	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds",
		"Repository query latency in milliseconds", m.histogramBuckets, "operation")
	m.breakerState = m.gaugeVec("breaker_state",
		"Circuit breaker state (0 closed, 1 half-open, 2 open)", "breaker")
	m.breakerRejections = m.counterVec("breaker_rejections_total",
		"Calls rejected by an open circuit breaker", "breaker")

	m.graphNodes = m.histogramVec("graph_nodes",
		"Nodes per assembled graph", sizeBuckets, "graph")
	m.graphDroppedTriples = m.counterVec("graph_dropped_triples_total",
		"Triples dropped for a missing display name", "graph")

	m.searchQueries = m.counterVec("search_queries_total", "Keyword searches by status", "status")
	m.searchLatency = m.histogram("search_latency_milliseconds",
		"Keyword search latency in milliseconds", m.histogramBuckets)
	m.searchIndexedDocs = m.gauge("search_indexed_documents", "Articles in the search index")

	m.indexRefreshes = m.counterVec("index_refreshes_total", "Index refresh runs by outcome", "outcome")
	m.indexSkipped = m.counterVec("index_skipped_total", "Articles skipped during refresh by reason", "reason")
	m.queueSize = m.gauge("queue_size", "Current number of index jobs waiting")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum index queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Index queue utilization (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of index jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of index jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected index jobs")

	m.workerCount = m.gauge("worker_count", "Configured index workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Index workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Index job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed index jobs")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

// RecordRecommendation counts a recommendation request by outcome.
func RecordRecommendation(outcome string) {
	manager().recommendations.WithLabelValues(outcome).Inc()
}

// RecordRecommendationLatency records recommendation latency in milliseconds.
func RecordRecommendationLatency(latencyMs float64) {
	manager().recommendationLatency.Observe(latencyMs)
}

// RecordRecommendationCandidates records how many candidates were ranked.
func RecordRecommendationCandidates(n int) {
	manager().recommendationRankSize.Observe(float64(n))
}

// RecordCacheHit increments the hit counter of cache.
func RecordCacheHit(cache string) {
	manager().cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter of cache.
func RecordCacheMiss(cache string) {
	manager().cacheMisses.WithLabelValues(cache).Inc()
}

// RecordRepositoryQuery records one repository query and its latency.
func RecordRepositoryQuery(operation string, latencyMs float64, err error) {
	status := OutcomeOK
	if err != nil {
		status = OutcomeError
	}
	manager().repositoryQueries.WithLabelValues(operation, status).Inc()
	manager().repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateBreakerState sets the state gauge of breaker.
func UpdateBreakerState(breaker string, state int) {
	manager().breakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordBreakerRejection counts a call rejected by an open breaker.
func RecordBreakerRejection(breaker string) {
	manager().breakerRejections.WithLabelValues(breaker).Inc()
}

// RecordGraph records the size of an assembled graph and its dropped triples.
func RecordGraph(graph string, nodes, dropped int) {
	manager().graphNodes.WithLabelValues(graph).Observe(float64(nodes))
	if dropped > 0 {
		manager().graphDroppedTriples.WithLabelValues(graph).Add(float64(dropped))
	}
}

// RecordSearch records one keyword search.
func RecordSearch(latencyMs float64, err error) {
	status := OutcomeOK
	if err != nil {
		status = OutcomeError
	}
	manager().searchQueries.WithLabelValues(status).Inc()
	manager().searchLatency.Observe(latencyMs)
}

// UpdateSearchIndexedDocs sets the number of indexed articles.
func UpdateSearchIndexedDocs(n uint64) {
	manager().searchIndexedDocs.Set(float64(n))
}

// RecordIndexRefresh counts an index refresh run by outcome.
func RecordIndexRefresh(outcome string) {
	manager().indexRefreshes.WithLabelValues(outcome).Inc()
}

// RecordIndexSkipped counts articles skipped during a refresh.
func RecordIndexSkipped(reason string, n int) {
	if n > 0 {
		manager().indexSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	manager().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	manager().queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	manager().queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	manager().queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	manager().queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	manager().queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	manager().workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	manager().workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	manager().workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	manager().workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	manager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	manager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	manager().errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMetrics samples heap usage and goroutine count.
func UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	manager().systemMemoryUsage.Set(float64(ms.HeapInuse))
	manager().systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
