package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"casework-hq/auditexport/pkg/config"
)

// ReferenceMetrics tracks Git reference data syncs.
type ReferenceMetrics struct {
	syncsTotal   *prometheus.CounterVec
	updatesTotal prometheus.Counter
}

// NewReferenceMetrics creates and registers reference sync metrics.
func NewReferenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReferenceMetrics {
	rm := &ReferenceMetrics{
		syncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reference_syncs_total",
				Help:      "Total number of reference repository syncs",
			},
			[]string{"status"},
		),
		updatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reference_updates_total",
				Help:      "Total number of syncs that changed the reference file",
			},
		),
	}
	registry.MustRegister(rm.syncsTotal, rm.updatesTotal)
	return rm
}

// Record records one sync.
func (rm *ReferenceMetrics) Record(referenceChanged bool, err error) {
	if err != nil {
		rm.syncsTotal.WithLabelValues(StatusFailed).Inc()
		return
	}
	rm.syncsTotal.WithLabelValues(StatusSuccess).Inc()
	if referenceChanged {
		rm.updatesTotal.Inc()
	}
}
