// Package server wires the audit export HTTP surface together.
//
// Routes:
//
//	GET  /export    CSV report, see package handlers
//	POST /audit     audit command ingestion, single or JSON-lines batch
//	GET  /health    liveness probe
//	GET  /ready     readiness probe (audit store, info and casework services)
//	GET  /version   build information
//	GET  /metrics   Prometheus metrics, when enabled
//
// Health and metrics paths are configurable. Every request passes through
// panic recovery, request ID assignment and access logging; the export route
// is additionally rate limited. The whole router is wrapped with otelhttp so
// incoming trace context is continued.
//
// # Basic Usage
//
//	srv := server.New(cfg, server.Dependencies{
//	    Exporter: exportService,
//	    Recorder: rec,
//	    Health:   checker,
//	    Metrics:  collector,
//	    Location: cfg.Export.Location(),
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
