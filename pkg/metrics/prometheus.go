// Package metrics provides Prometheus metrics for the bodytap game server.
package metrics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics of the game server.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Frame loop
	framesProcessed prometheus.Counter
	framesSkipped   prometheus.Counter

	// Pose estimation
	detectionsSubmitted prometheus.Counter
	detectionsBusy      prometheus.Counter
	detectionsFailed    prometheus.Counter
	detectionsDiscarded prometheus.Counter
	detectionLatency    prometheus.Histogram

	// Targets
	targetsSpawned prometheus.Counter
	spawnFallbacks prometheus.Counter
	spawnsDeferred prometheus.Counter
	targetsExpired prometheus.Counter
	targetsEvicted prometheus.Counter
	hits           prometheus.Counter

	// Sessions
	sessionsStarted  prometheus.Counter
	sessionsEnded    prometheus.Counter
	sessionsRejected prometheus.Counter
	activeSessions   prometheus.Gauge
	finalScore       prometheus.Histogram

	// Outbox queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Totals across all open outboxes behind the gauges above.
	queueMu       sync.Mutex
	queuedTotal   int
	capacityTotal int

	// Dispatch workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

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
		namespace:        "bodytap",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counter(auto promauto.Factory, name, help string) prometheus.Counter {
	return auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(auto promauto.Factory, name, help string) prometheus.Gauge {
	return auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(auto promauto.Factory, name, help string, buckets []float64) prometheus.Histogram {
	return auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	registry := m.registry
	if !m.enabled {
		// Recording stays safe but nothing reaches the configured registry.
		registry = prometheus.NewRegistry()
	}
	auto := promauto.With(registry)

	m.framesProcessed = m.counter(auto, "frames_processed_total", "Total number of frames run through the game loop")
	m.framesSkipped = m.counter(auto, "frames_skipped_total", "Total number of frames skipped as duplicates of the previous timestamp")

	m.detectionsSubmitted = m.counter(auto, "detections_submitted_total", "Total number of frames handed to the pose estimator")
	m.detectionsBusy = m.counter(auto, "detections_busy_total", "Frames not submitted because an estimation was still in flight")
	m.detectionsFailed = m.counter(auto, "detections_failed_total", "Total number of failed pose estimations")
	m.detectionsDiscarded = m.counter(auto, "detections_discarded_total", "Estimation results that arrived after the loop was closed")
	m.detectionLatency = m.histogram(auto, "detection_latency_milliseconds", "Pose estimation latency in milliseconds", m.histogramBuckets)

	m.targetsSpawned = m.counter(auto, "targets_spawned_total", "Total number of targets spawned")
	m.spawnFallbacks = m.counter(auto, "spawn_fallbacks_total", "Spawns that exhausted every attempt and used the fallback candidate")
	m.spawnsDeferred = m.counter(auto, "spawns_deferred_total", "Spawns postponed because the frame had no usable surface")
	m.targetsExpired = m.counter(auto, "targets_expired_total", "Targets that timed out without being hit")
	m.targetsEvicted = m.counter(auto, "targets_evicted_total", "Targets removed because they overlapped a UI zone")
	m.hits = m.counter(auto, "hits_total", "Total number of credited hits")

	m.sessionsStarted = m.counter(auto, "sessions_started_total", "Total number of game sessions started")
	m.sessionsEnded = m.counter(auto, "sessions_ended_total", "Total number of game sessions that reached the end")
	m.sessionsRejected = m.counter(auto, "sessions_rejected_total", "Sessions refused because the server was at capacity")
	m.activeSessions = m.gauge(auto, "active_sessions", "Number of connected game sessions")
	m.finalScore = m.histogram(auto, "final_score", "Distribution of final session scores",
		[]float64{0, 5, 10, 20, 40, 60, 80, 100, 150, 200})

	m.queueSize = m.gauge(auto, "outbox_size", "Outbound messages queued across all open outboxes")
	m.queueCapacity = m.gauge(auto, "outbox_capacity", "Combined capacity of all open outboxes")
	m.queueUtilization = m.gauge(auto, "outbox_utilization_ratio", "Outbox utilization ratio (queued / capacity, all outboxes)")
	m.queueEnqueueRate = m.counter(auto, "outbox_enqueue_total", "Total number of messages enqueued")
	m.queueDequeueRate = m.counter(auto, "outbox_dequeue_total", "Total number of messages dequeued")
	m.queueEnqueueErrors = m.counter(auto, "outbox_dropped_total", "Total number of messages dropped on enqueue")
	m.queueProcessingLatency = m.histogram(auto, "outbox_enqueue_latency_milliseconds", "Outbox enqueue latency in milliseconds", m.histogramBuckets)

	m.workerActiveCount = m.gauge(auto, "dispatcher_active_count", "Number of running outbox dispatchers")
	m.workerProcessingLatency = m.histogram(auto, "dispatcher_send_latency_milliseconds", "Time to write one message to the client", m.histogramBuckets)
	m.workerErrorRate = m.counter(auto, "dispatcher_errors_total", "Total number of failed client writes")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: m.customLabels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = m.gauge(auto, "system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge(auto, "system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram(auto, "system_gc_pause_time_milliseconds", "Most recent GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Frame loop metrics.

// RecordFrameProcessed increments the processed frames counter.
func RecordFrameProcessed() {
	globalManager.framesProcessed.Inc()
}

// RecordFrameSkipped increments the duplicate frames counter.
func RecordFrameSkipped() {
	globalManager.framesSkipped.Inc()
}

// RecordDetectionSubmitted increments the submitted estimations counter.
func RecordDetectionSubmitted() {
	globalManager.detectionsSubmitted.Inc()
}

// RecordDetectionBusy counts a frame dropped because the estimator was busy.
func RecordDetectionBusy() {
	globalManager.detectionsBusy.Inc()
}

// RecordDetectionFailed increments the failed estimations counter.
func RecordDetectionFailed() {
	globalManager.detectionsFailed.Inc()
}

// RecordDetectionDiscarded counts a late result thrown away after teardown.
func RecordDetectionDiscarded() {
	globalManager.detectionsDiscarded.Inc()
}

// RecordDetectionLatency records estimation latency in milliseconds.
func RecordDetectionLatency(latencyMs float64) {
	globalManager.detectionLatency.Observe(latencyMs)
}

// Target metrics.

// RecordTargetSpawned counts a spawn; fallback marks a spawn that used the
// last-resort candidate.
func RecordTargetSpawned(fallback bool) {
	globalManager.targetsSpawned.Inc()
	if fallback {
		globalManager.spawnFallbacks.Inc()
	}
}

// RecordSpawnDeferred counts a spawn postponed to a later frame.
func RecordSpawnDeferred() {
	globalManager.spawnsDeferred.Inc()
}

// RecordTargetExpired increments the expired targets counter.
func RecordTargetExpired() {
	globalManager.targetsExpired.Inc()
}

// RecordTargetEvicted increments the evicted targets counter.
func RecordTargetEvicted() {
	globalManager.targetsEvicted.Inc()
}

// RecordHit increments the credited hits counter.
func RecordHit() {
	globalManager.hits.Inc()
}

// Session metrics.

// RecordSessionStarted counts a new session and raises the active gauge.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
	globalManager.activeSessions.Inc()
}

// RecordSessionClosed lowers the active sessions gauge.
func RecordSessionClosed() {
	globalManager.activeSessions.Dec()
}

// RecordSessionEnded records a finished session and its final score.
func RecordSessionEnded(finalScore int) {
	globalManager.sessionsEnded.Inc()
	globalManager.finalScore.Observe(float64(finalScore))
}

// RecordSessionRejected counts a session refused at capacity.
func RecordSessionRejected() {
	globalManager.sessionsRejected.Inc()
}

// Queue metrics.

// AddQueueSize adjusts the number of messages queued across all open
// outboxes by delta.
func AddQueueSize(delta int) {
	globalManager.adjustQueue(delta, 0)
}

// AddQueueCapacity adjusts the combined capacity of all open outboxes by delta.
func AddQueueCapacity(delta int) {
	globalManager.adjustQueue(0, delta)
}

func (m *Manager) adjustQueue(size, capacity int) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	m.queuedTotal += size
	m.capacityTotal += capacity
	m.queueSize.Set(float64(m.queuedTotal))
	m.queueCapacity.Set(float64(m.capacityTotal))
	if m.capacityTotal > 0 {
		m.queueUtilization.Set(float64(m.queuedTotal) / float64(m.capacityTotal))
	} else {
		m.queueUtilization.Set(0)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the dropped messages counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// AddWorkerActive adjusts the number of running dispatchers by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records the time spent writing one message.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the dispatcher error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the heap memory in use in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// CollectRuntime samples memory, goroutine and GC statistics.
func CollectRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.HeapInuse)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		pause := ms.PauseNs[(ms.NumGC+255)%256]
		RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
	}
}

// RefreshInterval returns how often runtime statistics should be sampled.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Value returns the summed value of a counter or gauge family, or the sample
// count of a histogram family, gathered from the custom registry. name is the
// fully qualified metric name.
func Value(name string) (float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return 0, fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		return sum(mf), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNoSample, name)
}

func sum(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.GetCounter() != nil:
			total += m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			total += m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			total += float64(m.GetHistogram().GetSampleCount())
		}
	}
	return total
}
