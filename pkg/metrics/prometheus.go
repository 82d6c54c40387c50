// Package metrics provides Prometheus metrics for the racerank rating engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Partition outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// durationBuckets covers sub-second in-memory runs up to multi-minute
// full-table partitions, in milliseconds.
var durationBuckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 180000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the rating engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Partition pipeline metrics
	partitionRuns        *prometheus.CounterVec
	partitionDuration    *prometheus.HistogramVec
	stageDuration        *prometheus.HistogramVec
	publishedRows        *prometheus.GaugeVec
	lastSuccessUnix      *prometheus.GaugeVec
	recordsExtracted     *prometheus.CounterVec
	malformedRecords     *prometheus.CounterVec
	bannedMaps           prometheus.Counter
	activePartitionCount prometheus.Gauge

	// Scheduler metrics
	scheduledRuns    *prometheus.CounterVec
	scheduledSkipped prometheus.Counter

	// Error metrics
	errorsByComponent *prometheus.CounterVec

	// HTTP metrics for the ops endpoints
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "racerank",
		subsystem:        "ratings",
		histogramBuckets: durationBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	partitionLabels := []string{"physics", "mode", "category"}

	m.partitionRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partition_runs_total",
		Help:      "Partition runs by outcome",
	}, append(partitionLabels, "outcome"))

	m.partitionDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partition_duration_milliseconds",
		Help:      "Wall time of a full extract-to-publish partition run",
		Buckets:   m.histogramBuckets,
	}, partitionLabels)

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_milliseconds",
		Help:      "Wall time of a single pipeline stage",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.publishedRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "published_rows",
		Help:      "Rows in the most recently published partition",
	}, partitionLabels)

	m.lastSuccessUnix = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful publish per partition",
	}, partitionLabels)

	m.recordsExtracted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_extracted_total",
		Help:      "Records that survived extraction, per partition",
	}, partitionLabels)

	m.malformedRecords = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_records_total",
		Help:      "Records excluded as malformed, per partition and reason",
	}, append(partitionLabels, "reason"))

	m.bannedMaps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "banned_maps_total",
		Help:      "Maps whose records scored zero because the map was banned",
	})

	m.activePartitionCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_partitions",
		Help:      "Partitions currently being computed",
	})

	m.scheduledRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scheduled_runs_total",
		Help:      "Scheduled runs by outcome",
	}, []string{"outcome"})

	m.scheduledSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scheduled_runs_skipped_total",
		Help:      "Scheduled ticks skipped because the previous run was still going",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "type"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of ops HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Ops HTTP request duration in milliseconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordPartitionRun counts a finished partition and observes its duration.
func RecordPartitionRun(physics, mode, category, outcome string, durationMs float64) {
	globalManager.partitionRuns.WithLabelValues(physics, mode, category, outcome).Inc()
	globalManager.partitionDuration.WithLabelValues(physics, mode, category).Observe(durationMs)
}

// RecordStageDuration observes the duration of one pipeline stage.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// UpdatePublishedRows sets the row count and success watermark of a partition.
func UpdatePublishedRows(physics, mode, category string, rows int, unixSeconds float64) {
	globalManager.publishedRows.WithLabelValues(physics, mode, category).Set(float64(rows))
	globalManager.lastSuccessUnix.WithLabelValues(physics, mode, category).Set(unixSeconds)
}

// AddRecordsExtracted adds to the extracted records counter of a partition.
func AddRecordsExtracted(physics, mode, category string, n int) {
	globalManager.recordsExtracted.WithLabelValues(physics, mode, category).Add(float64(n))
}

// AddMalformedRecords adds to the malformed records counter of a partition
// for reason.
func AddMalformedRecords(physics, mode, category, reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.malformedRecords.WithLabelValues(physics, mode, category, reason).Add(float64(n))
}

// AddBannedMaps adds to the banned maps counter.
func AddBannedMaps(n int) {
	globalManager.bannedMaps.Add(float64(n))
}

// IncActivePartitions marks a partition as started.
func IncActivePartitions() {
	globalManager.activePartitionCount.Inc()
}

// DecActivePartitions marks a partition as finished.
func DecActivePartitions() {
	globalManager.activePartitionCount.Dec()
}

// RecordScheduledRun counts a scheduled run by outcome.
func RecordScheduledRun(outcome string) {
	globalManager.scheduledRuns.WithLabelValues(outcome).Inc()
}

// RecordScheduledSkip counts a skipped scheduler tick.
func RecordScheduledSkip() {
	globalManager.scheduledSkipped.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
