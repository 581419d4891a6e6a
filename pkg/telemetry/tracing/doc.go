// Package tracing configures OpenTelemetry tracing for the audit export
// service.
//
// New installs a global tracer provider exporting over OTLP gRPC, so packages
// that create spans with otel.Tracer need no reference to this package:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Spans emitted by the service:
//
//   - export.prepare: request validation and schema resolution
//   - export.write: the streaming pass over the audit store
//   - outgoing info and casework requests, via otelhttp
//   - incoming HTTP requests, via otelhttp
//
// Sampling is parent-based with "always", "never" or "ratio" for root spans.
package tracing
