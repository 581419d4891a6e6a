package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"casework-hq/auditexport/pkg/config"
)

// IngestMetrics tracks audit commands written through the recorder.
type IngestMetrics struct {
	recordsTotal *prometheus.CounterVec
	events       *CardinalityLimiter
}

// NewIngestMetrics creates and registers ingest metrics.
func NewIngestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IngestMetrics {
	im := &IngestMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_ingested_total",
				Help:      "Total number of audit commands ingested",
			},
			[]string{"event", "status"},
		),
		events: NewCardinalityLimiter(200),
	}
	registry.MustRegister(im.recordsTotal)
	return im
}

// Record counts one command. Event kinds beyond the cardinality limit are
// folded into "other".
func (im *IngestMetrics) Record(event string, err error) {
	if !im.events.Allow(event) {
		event = otherLabel
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	im.recordsTotal.WithLabelValues(event, status).Inc()
}
