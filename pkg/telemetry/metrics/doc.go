// Package metrics provides Prometheus metrics for the audit export service.
//
// # Metrics Categories
//
//   - Export: runs by report type, case type and status, duration, rows
//     written, skipped records and failed adapter steps
//   - Ingest: audit commands written through the recorder
//   - Retention: pruning runs and records deleted
//   - HTTP: requests served by route, method and status code
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	// Export observer
//	svc := export.NewService(store, infoClient, caseworkClient, nil)
//	svc.SetObserver(collector)
//
//	// Retention hook
//	scheduler.OnResult(collector.RecordPrune)
//
//	// Scrape endpoint
//	router.Handle("/metrics", collector.Handler())
//
// All metric names are prefixed with the configured namespace and subsystem,
// casework_auditexport_ by default:
//
//	casework_auditexport_exports_total{report_type="CASE_DATA",case_type="MIN",status="success"} 12
//
// Case type and event labels are capped by a CardinalityLimiter; values past
// the cap are recorded as "other".
package metrics
