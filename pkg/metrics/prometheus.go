// Package metrics provides Prometheus metrics for the sales bonus service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingest
	messagesReceived *prometheus.CounterVec
	messagesIgnored  *prometheus.CounterVec
	salesRecorded    prometheus.Counter
	saleAmountTotal  prometheus.Counter
	nameUpdates      prometheus.Counter
	duplicates       prometheus.Counter
	employees        prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueEnqueueErrors prometheus.Counter
	workerPanics       prometheus.Counter

	// Snapshot persistence
	snapshotSaves       prometheus.Counter
	snapshotSaveErrors  prometheus.Counter
	snapshotSaveLatency prometheus.Histogram

	// Lifecycle
	weekResets *prometheus.CounterVec

	// Backfill
	backfillRuns     *prometheus.CounterVec
	backfillMessages prometheus.Counter
	backfillSales    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "salesbonus",
		subsystem:        "ledger",
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.messagesReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "messages_received_total",
		Help:        "Messages handed to the ingest pipeline, by origin (live, backfill)",
		ConstLabels: m.constLabels,
	}, []string{"origin"})
	m.messagesIgnored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "messages_ignored_total",
		Help:        "Messages dropped before or during classification, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})
	m.salesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sales_recorded_total",
		Help:        "Sale events appended to the aggregate",
		ConstLabels: m.constLabels,
	})
	m.saleAmountTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sale_amount_total",
		Help:        "Sum of recorded sale amounts",
		ConstLabels: m.constLabels,
	})
	m.nameUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "name_updates_total",
		Help:        "Display name upserts",
		ConstLabels: m.constLabels,
	})
	m.duplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "messages_duplicate_total",
		Help:        "Messages skipped because their id was already processed this period",
		ConstLabels: m.constLabels,
	})
	m.employees = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "employees",
		Help:        "Employees tracked in the current period",
		ConstLabels: m.constLabels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Inbound messages waiting for the worker",
		ConstLabels: m.constLabels,
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_errors_total",
		Help:        "Inbound messages rejected by the queue",
		ConstLabels: m.constLabels,
	})
	m.workerPanics = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_panics_total",
		Help:        "Panics recovered while processing a single message",
		ConstLabels: m.constLabels,
	})

	m.snapshotSaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_saves_total",
		Help:        "Successful snapshot writes",
		ConstLabels: m.constLabels,
	})
	m.snapshotSaveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_save_errors_total",
		Help:        "Failed snapshot writes",
		ConstLabels: m.constLabels,
	})
	m.snapshotSaveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_save_latency_milliseconds",
		Help:        "Snapshot write latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.weekResets = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "week_resets_total",
		Help:        "Period resets, by trigger (manual, scheduled)",
		ConstLabels: m.constLabels,
	}, []string{"trigger"})

	m.backfillRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backfill_runs_total",
		Help:        "Finished backfill jobs, by status (ok, error)",
		ConstLabels: m.constLabels,
	}, []string{"status"})
	m.backfillMessages = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backfill_messages_total",
		Help:        "Historical messages fetched by backfill jobs",
		ConstLabels: m.constLabels,
	})
	m.backfillSales = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backfill_sales_total",
		Help:        "Historical messages classified as sales",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "HTTP requests by endpoint, method and status",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordMessageReceived counts a message entering the pipeline.
func RecordMessageReceived(origin string) {
	globalManager.messagesReceived.WithLabelValues(origin).Inc()
}

// RecordMessageIgnored counts a dropped message.
func RecordMessageIgnored(reason string) {
	globalManager.messagesIgnored.WithLabelValues(reason).Inc()
}

// RecordSale counts a recorded sale and its amount.
func RecordSale(amount int64) {
	globalManager.salesRecorded.Inc()
	if amount > 0 {
		globalManager.saleAmountTotal.Add(float64(amount))
	}
}

// RecordNameUpdate counts a display name upsert.
func RecordNameUpdate() {
	globalManager.nameUpdates.Inc()
}

// RecordDuplicate counts a message skipped by the deduper.
func RecordDuplicate() {
	globalManager.duplicates.Inc()
}

// UpdateEmployees sets the employees gauge.
func UpdateEmployees(count int) {
	globalManager.employees.Set(float64(count))
}

// UpdateQueueSize sets the inbound queue gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordWorkerPanic counts a recovered worker panic.
func RecordWorkerPanic() {
	globalManager.workerPanics.Inc()
}

// RecordSnapshotSave records a snapshot write outcome and latency.
func RecordSnapshotSave(latencyMs float64, err error) {
	globalManager.snapshotSaveLatency.Observe(latencyMs)
	if err != nil {
		globalManager.snapshotSaveErrors.Inc()
		return
	}
	globalManager.snapshotSaves.Inc()
}

// RecordWeekReset counts a period reset.
func RecordWeekReset(trigger string) {
	globalManager.weekResets.WithLabelValues(trigger).Inc()
}

// RecordBackfill records a finished backfill job.
func RecordBackfill(fetched, sales int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	globalManager.backfillRuns.WithLabelValues(status).Inc()
	globalManager.backfillMessages.Add(float64(fetched))
	globalManager.backfillSales.Add(float64(sales))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the registry every package-level collector is registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
