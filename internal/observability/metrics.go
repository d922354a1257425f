package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	MessagesReceived     prometheus.Counter
	ParseErrors          prometheus.Counter
	ResolveFailures      prometheus.Counter
	MeasurementsInserted prometheus.Counter
	InsertErrors         prometheus.Counter
	AuditLines           prometheus.Counter
	AuditErrors          prometheus.Counter
	PipelineRunning      prometheus.Gauge

	ProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MessagesReceived,
		m.ParseErrors,
		m.ResolveFailures,
		m.MeasurementsInserted,
		m.InsertErrors,
		m.AuditLines,
		m.AuditErrors,
		m.PipelineRunning,
		m.ProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "messages_received_total",
			Help:      "Total publications delivered by the broker subscription.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "parse_errors_total",
			Help:      "Messages dropped for malformed payloads, missing station codes, or bad timestamps.",
		}),
		ResolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "resolve_failures_total",
			Help:      "Messages dropped because the station code matched no directory record.",
		}),
		MeasurementsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "measurements_inserted_total",
			Help:      "Measurement rows successfully inserted.",
		}),
		InsertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "insert_errors_total",
			Help:      "Relational insert failures. Failed messages are consumed, not redelivered.",
		}),
		AuditLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "audit_lines_total",
			Help:      "Documents appended to the audit log.",
		}),
		AuditErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_ingest",
			Name:      "audit_errors_total",
			Help:      "Audit log append failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_ingest",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_ingest",
			Name:      "message_processing_duration_seconds",
			Help:      "Duration from message arrival to persistence outcome.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
	}
}
