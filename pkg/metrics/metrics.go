// Package metrics provides Prometheus metrics for the verdict prediction
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  prometheus.Registerer

	// Prediction metrics
	predictions        *prometheus.CounterVec
	backendFailures    *prometheus.CounterVec
	backendDegraded    *prometheus.CounterVec
	backendLatency     *prometheus.HistogramVec
	ensembleConfidence prometheus.Histogram
	modelsUsed         prometheus.Histogram

	// Training metrics
	trainingRecords prometheus.Gauge
	trainingRuns    prometheus.Counter

	// Batch pipeline metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueRejections  prometheus.Counter
	jobsProcessed    prometheus.Counter
	jobsDuplicate    prometheus.Counter
	jobLatency       prometheus.Histogram
	workerCount      prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithHistogramBuckets overrides the latency histogram buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry registers collectors on a specific registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// Global manager on a custom registry, so the default Go collectors never
// pollute the scrape surface.
var (
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry
	globalManager  *Manager                   //nolint:gochecknoglobals // singleton manager
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "verdict",
		subsystem: "prediction",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) register() {
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "predictions_total",
		Help: "Predictions served, by combination method",
	}, []string{"method"})

	m.backendFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "backend_failures_total",
		Help: "Backend calls that failed and were excluded from the blend",
	}, []string{"backend"})

	m.backendDegraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "backend_degraded_total",
		Help: "Backend calls that fell back to calibration defaults",
	}, []string{"backend"})

	m.backendLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "backend_latency_milliseconds",
		Help:    "Per-backend prediction latency in milliseconds",
		Buckets: m.buckets,
	}, []string{"backend"})

	m.ensembleConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "ensemble_confidence",
		Help:    "Blended confidence of served predictions",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	m.modelsUsed = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "models_used",
		Help:    "Number of backends contributing to each prediction",
		Buckets: prometheus.LinearBuckets(0, 1, 4),
	})

	m.trainingRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "training_records",
		Help: "Labeled case records available for training",
	})

	m.trainingRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "training_runs_total",
		Help: "Completed training passes across all backends",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Current batch-scoring queue depth",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured batch-scoring queue capacity",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueues_total",
		Help: "Jobs accepted into the batch-scoring queue",
	})

	m.queueRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_rejections_total",
		Help: "Jobs rejected on enqueue (backpressure or closed queue)",
	})

	m.jobsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_processed_total",
		Help: "Batch-scoring jobs completed by workers",
	})

	m.jobsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_duplicate_total",
		Help: "Batch-scoring submissions skipped as duplicates",
	})

	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "job_latency_milliseconds",
		Help:    "End-to-end batch job processing latency in milliseconds",
		Buckets: m.buckets,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_count",
		Help: "Configured batch-scoring workers",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method, and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.buckets,
	}, []string{"endpoint", "method", "status_code"})
}

// GetRegistry exposes the custom registry for the /metrics handler.
func GetRegistry() *prometheus.Registry { return customRegistry }

// Package-level helpers against the global manager.

// RecordPrediction counts one served prediction by combination method.
func RecordPrediction(method string) {
	globalManager.predictions.WithLabelValues(method).Inc()
}

// RecordBackendFailure counts one backend exclusion.
func RecordBackendFailure(backend string) {
	globalManager.backendFailures.WithLabelValues(backend).Inc()
}

// RecordBackendDegraded counts one calibration-default fallback.
func RecordBackendDegraded(backend string) {
	globalManager.backendDegraded.WithLabelValues(backend).Inc()
}

// RecordBackendLatency records one backend round-trip.
func RecordBackendLatency(backend string, latencyMs float64) {
	globalManager.backendLatency.WithLabelValues(backend).Observe(latencyMs)
}

// ObserveEnsembleConfidence records a blended confidence score.
func ObserveEnsembleConfidence(confidence float64) {
	globalManager.ensembleConfidence.Observe(confidence)
}

// ObserveModelsUsed records how many backends contributed to a prediction.
func ObserveModelsUsed(n int) {
	globalManager.modelsUsed.Observe(float64(n))
}

// UpdateTrainingRecords tracks the size of the training corpus.
func UpdateTrainingRecords(n int) {
	globalManager.trainingRecords.Set(float64(n))
}

// RecordTrainingRun counts one completed training pass.
func RecordTrainingRun() {
	globalManager.trainingRuns.Inc()
}

// UpdateQueueSize tracks the batch queue depth.
func UpdateQueueSize(n int) {
	globalManager.queueSize.Set(float64(n))
}

// UpdateQueueCapacity tracks the configured batch queue capacity.
func UpdateQueueCapacity(n int) {
	globalManager.queueCapacity.Set(float64(n))
}

// RecordQueueEnqueue counts one accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueRejection counts one rejected job.
func RecordQueueRejection() {
	globalManager.queueRejections.Inc()
}

// RecordJobProcessed counts one completed batch job.
func RecordJobProcessed() {
	globalManager.jobsProcessed.Inc()
}

// RecordJobDuplicate counts one skipped duplicate submission.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// RecordJobLatency records one batch job's end-to-end latency.
func RecordJobLatency(latencyMs float64) {
	globalManager.jobLatency.Observe(latencyMs)
}

// UpdateWorkerCount tracks the configured worker count.
func UpdateWorkerCount(n int) {
	globalManager.workerCount.Set(float64(n))
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records one HTTP request's duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, latencyMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(latencyMs)
}
