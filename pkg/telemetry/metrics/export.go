package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"casework-hq/auditexport/pkg/config"
)

// ExportMetrics tracks CSV export runs.
//
// Metrics:
//   - exports_total: export runs by report type, case type and status
//   - export_duration_seconds: duration of runs that reached the store
//   - export_rows_total: CSV rows written
//   - records_skipped_total: records dropped for malformed payloads
//   - adapter_failures_total: failed adapter steps by adapter tag
type ExportMetrics struct {
	exportsTotal    *prometheus.CounterVec
	exportDuration  *prometheus.HistogramVec
	rowsTotal       *prometheus.CounterVec
	skippedTotal    *prometheus.CounterVec
	adapterFailures *prometheus.CounterVec
}

// NewExportMetrics creates and registers export metrics.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exports_total",
				Help:      "Total number of export runs",
			},
			[]string{"report_type", "case_type", "status"},
		),
		exportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "export_duration_seconds",
				Help:      "Duration of export runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"report_type"},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "export_rows_total",
				Help:      "Total number of CSV rows written",
			},
			[]string{"report_type"},
		),
		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_skipped_total",
				Help:      "Total number of audit records skipped for malformed payloads",
			},
			[]string{"report_type", "event"},
		),
		adapterFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "adapter_failures_total",
				Help:      "Total number of field adapter steps that failed",
			},
			[]string{"report_type", "adapter"},
		),
	}

	registry.MustRegister(
		em.exportsTotal,
		em.exportDuration,
		em.rowsTotal,
		em.skippedTotal,
		em.adapterFailures,
	)

	return em
}

// RecordExport records a finished run. Duration is observed only when
// observeDuration is set, so rejected requests do not skew the histogram.
func (em *ExportMetrics) RecordExport(reportType, caseType, status string, rows int, duration time.Duration, observeDuration bool) {
	em.exportsTotal.WithLabelValues(reportType, caseType, status).Inc()
	if rows > 0 {
		em.rowsTotal.WithLabelValues(reportType).Add(float64(rows))
	}
	if observeDuration {
		em.exportDuration.WithLabelValues(reportType).Observe(duration.Seconds())
	}
}

// RecordSkipped counts a skipped record.
func (em *ExportMetrics) RecordSkipped(reportType, event string) {
	em.skippedTotal.WithLabelValues(reportType, event).Inc()
}

// RecordAdapterFailure counts a failed adapter step.
func (em *ExportMetrics) RecordAdapterFailure(reportType, adapter string) {
	em.adapterFailures.WithLabelValues(reportType, adapter).Inc()
}
