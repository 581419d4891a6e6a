// Package config loads and validates the audit export service configuration.
//
// Configuration comes from a YAML file with environment variable overrides:
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	audit:
//	  backend: postgres
//	  postgres:
//	    dsn: postgres://audit@db/audit
//	info:
//	  base_url: http://info-service
//	casework:
//	  base_url: http://casework-service
//	export:
//	  timezone: Europe/London
//
// Loading runs in this order: defaults, YAML, AUDITEXPORT_* environment
// variables, then validation. Keys missing from the file keep their defaults;
// an explicit false in the file overrides a default of true.
//
// Environment variables are named AUDITEXPORT_SECTION_FIELD, for example
// AUDITEXPORT_AUDIT_POSTGRES_DSN or AUDITEXPORT_LOG_LEVEL. See envOverrides in
// load.go for the full list.
//
// Long-running commands can keep a global configuration with Initialize and
// GetConfig, and reload it when the file changes with a Watcher.
package config
