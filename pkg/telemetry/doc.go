// Package telemetry groups the observability of the audit export service.
//
// # Components
//
//   - logging: slog setup with export context fields and PII redaction
//   - metrics: Prometheus counters and histograms for exports, ingest,
//     retention, reference syncs and HTTP traffic
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	svc.SetObserver(collector)
//
// # PII Protection
//
// Audit payloads carry correspondent names, addresses and contact details.
// With redaction enabled, log attributes are scrubbed before they are
// written:
//
//   - Emails: user@example.com → u***@example.com
//   - UK phone numbers and postcodes
//   - Passwords, bearer tokens and basic auth credentials
//
// Custom redaction patterns can be configured.
package telemetry
