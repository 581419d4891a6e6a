package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"casework-hq/auditexport/pkg/config"
)

// RetentionMetrics tracks pruning runs.
type RetentionMetrics struct {
	runsTotal     *prometheus.CounterVec
	prunedTotal   prometheus.Counter
	lastPruneTime prometheus.Gauge
}

// NewRetentionMetrics creates and registers retention metrics.
func NewRetentionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RetentionMetrics {
	rm := &RetentionMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "prune_runs_total",
				Help:      "Total number of retention pruning runs",
			},
			[]string{"status"},
		),
		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_pruned_total",
				Help:      "Total number of audit records deleted by retention",
			},
		),
		lastPruneTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_successful_prune_timestamp_seconds",
				Help:      "Unix time of the last successful pruning run",
			},
		),
	}
	registry.MustRegister(rm.runsTotal, rm.prunedTotal, rm.lastPruneTime)
	return rm
}

// Record records one pruning run finished at now.
func (rm *RetentionMetrics) Record(deleted int64, err error, now time.Time) {
	if err != nil {
		rm.runsTotal.WithLabelValues(StatusFailed).Inc()
		return
	}
	rm.runsTotal.WithLabelValues(StatusSuccess).Inc()
	rm.prunedTotal.Add(float64(deleted))
	rm.lastPruneTime.Set(float64(now.Unix()))
}
