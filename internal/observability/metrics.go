// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline. All record methods
// are safe on a nil receiver so tests can run components without a registry.
type Metrics struct {
	// Ingestion metrics
	EventsReceived  prometheus.Counter
	EventsMalformed prometheus.Counter
	EventsFiltered  *prometheus.CounterVec
	EventsDeduped   prometheus.Counter
	EventsSubmitted prometheus.Counter

	// Dispatch metrics
	QueueDepth        prometheus.Gauge
	BackpressureTotal prometheus.Counter
	UnitsProcessed    *prometheus.CounterVec
	UnitRetries       prometheus.Counter
	DeadLetters       prometheus.Counter
	UnitDuration      prometheus.Histogram

	// Alerting metrics
	AlertsCreated    *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec
	AlertsDelivered  *prometheus.CounterVec
	AlertsFailed     *prometheus.CounterVec
	AlertsGated      prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngest prometheus.Gauge
	StreamReconnects     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tokenwatch"
	}

	return &Metrics{
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_received_total",
			Help:      "Total number of stream messages received",
		}),
		EventsMalformed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_malformed_total",
			Help:      "Total number of unparseable or invalid messages dropped",
		}),
		EventsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_filtered_total",
			Help:      "Total number of events dropped by ingest filters",
		}, []string{"filter"}),
		EventsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_deduped_total",
			Help:      "Total number of events suppressed by the seen-window",
		}),
		EventsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_submitted_total",
			Help:      "Total number of events submitted to the dispatcher",
		}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Current number of queued units awaiting a worker",
		}),
		BackpressureTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "backpressure_total",
			Help:      "Total number of submits that blocked on a full queue",
		}),
		UnitsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "units_processed_total",
			Help:      "Total number of units finished by outcome",
		}, []string{"outcome"}),
		UnitRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "unit_retries_total",
			Help:      "Total number of unit retry attempts",
		}),
		DeadLetters: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dead_letters_total",
			Help:      "Total number of units routed to the dead-letter store",
		}),
		UnitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "unit_duration_seconds",
			Help:      "Unit processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		AlertsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_created_total",
			Help:      "Total number of pending alerts created by type",
		}, []string{"type"}),
		AlertsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_suppressed_total",
			Help:      "Total number of alerts suppressed by the dedup window",
		}, []string{"type"}),
		AlertsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_delivered_total",
			Help:      "Total number of successful channel deliveries",
		}, []string{"channel"}),
		AlertsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_failed_total",
			Help:      "Total number of failed channel deliveries",
		}, []string{"channel"}),
		AlertsGated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_gated_total",
			Help:      "Total number of alerts withheld pending manual approval",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		LastSuccessfulIngest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingest_timestamp",
			Help:      "Unix timestamp of the last event submitted downstream",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "stream_reconnects_total",
			Help:      "Total number of stream reconnect attempts",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEventReceived increments the received counter.
func (m *Metrics) RecordEventReceived() {
	if m != nil {
		m.EventsReceived.Inc()
	}
}

// RecordEventMalformed increments the malformed-drop counter.
func (m *Metrics) RecordEventMalformed() {
	if m != nil {
		m.EventsMalformed.Inc()
	}
}

// RecordEventFiltered increments the ingest-filter drop counter.
func (m *Metrics) RecordEventFiltered(filter string) {
	if m != nil {
		m.EventsFiltered.WithLabelValues(filter).Inc()
	}
}

// RecordEventDeduped increments the seen-window suppression counter.
func (m *Metrics) RecordEventDeduped() {
	if m != nil {
		m.EventsDeduped.Inc()
	}
}

// RecordEventSubmitted increments the submitted counter and refreshes the
// last-ingest health gauge.
func (m *Metrics) RecordEventSubmitted(unixSeconds float64) {
	if m != nil {
		m.EventsSubmitted.Inc()
		m.LastSuccessfulIngest.Set(unixSeconds)
	}
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m != nil {
		m.QueueDepth.Set(float64(depth))
	}
}

// RecordBackpressure increments the full-queue counter.
func (m *Metrics) RecordBackpressure() {
	if m != nil {
		m.BackpressureTotal.Inc()
	}
}

// RecordUnitOutcome records a finished unit and its duration.
func (m *Metrics) RecordUnitOutcome(outcome string, seconds float64) {
	if m != nil {
		m.UnitsProcessed.WithLabelValues(outcome).Inc()
		m.UnitDuration.Observe(seconds)
	}
}

// RecordUnitRetry increments the retry counter.
func (m *Metrics) RecordUnitRetry() {
	if m != nil {
		m.UnitRetries.Inc()
	}
}

// RecordDeadLetter increments the dead-letter counter.
func (m *Metrics) RecordDeadLetter() {
	if m != nil {
		m.DeadLetters.Inc()
	}
}

// RecordAlertCreated increments the created counter for an alert type.
func (m *Metrics) RecordAlertCreated(alertType string) {
	if m != nil {
		m.AlertsCreated.WithLabelValues(alertType).Inc()
	}
}

// RecordAlertSuppressed increments the dedup suppression counter.
func (m *Metrics) RecordAlertSuppressed(alertType string) {
	if m != nil {
		m.AlertsSuppressed.WithLabelValues(alertType).Inc()
	}
}

// RecordAlertDelivered increments the per-channel delivery counter.
func (m *Metrics) RecordAlertDelivered(channel string) {
	if m != nil {
		m.AlertsDelivered.WithLabelValues(channel).Inc()
	}
}

// RecordAlertFailed increments the per-channel failure counter.
func (m *Metrics) RecordAlertFailed(channel string) {
	if m != nil {
		m.AlertsFailed.WithLabelValues(channel).Inc()
	}
}

// RecordAlertGated increments the approval-withheld counter.
func (m *Metrics) RecordAlertGated() {
	if m != nil {
		m.AlertsGated.Inc()
	}
}

// ObserveDBQuery records a query's duration and, when err is non-nil,
// increments the error counter for the operation.
func (m *Metrics) ObserveDBQuery(operation string, seconds float64, err error) {
	if m != nil {
		m.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
		if err != nil {
			m.DBQueryErrors.WithLabelValues(operation).Inc()
		}
	}
}

// RecordStreamReconnect increments the reconnect-attempt counter.
func (m *Metrics) RecordStreamReconnect() {
	if m != nil {
		m.StreamReconnects.Inc()
	}
}
