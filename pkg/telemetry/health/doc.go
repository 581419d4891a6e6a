// Package health provides liveness and readiness probes for the audit export
// service.
//
// # Endpoints
//
//   - /health: liveness, answers 200 while the process serves HTTP
//   - /ready: readiness, runs every registered component check
//   - /version: build information
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("audit_store", health.PingCheck(store), true)
//	checker.RegisterCheck("info", health.PingCheck(infoClient), true)
//	checker.RegisterCheck("casework", health.PingCheck(caseworkClient), false)
//
//	router.Get("/health", checker.LivenessHandler())
//	router.Get("/ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker's timeout. Readiness
// is "unhealthy" (503) when a critical check fails and "degraded" (200) when
// only non-critical checks fail.
package health
