// Package middleware provides the HTTP middleware of the audit export
// server: request IDs, access logging with per-route metrics, panic
// recovery and rate limiting.
//
// The server applies them in this order, outermost first:
//
//	r.Use(middleware.Recovery(logger))
//	r.Use(middleware.RequestID)
//	r.Use(middleware.Logging(logger, collector))
package middleware
