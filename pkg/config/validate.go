package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateReferenceSources(cfg)...)
	errs = append(errs, validateGitReference(&cfg.Reference)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if !strings.Contains(cfg.ListenAddress, ":") {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: expected host:port", cfg.ListenAddress),
		})
	}

	errs = append(errs, positiveDuration("server.read_timeout", cfg.ReadTimeout)...)
	errs = append(errs, positiveDuration("server.write_timeout", cfg.WriteTimeout)...)
	errs = append(errs, positiveDuration("server.shutdown_timeout", cfg.ShutdownTimeout)...)

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "must not be negative"})
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.requests_per_second",
				Message: "must be positive when rate limiting is enabled",
			})
		}
		if cfg.RateLimit.Burst < 1 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.burst",
				Message: "must be at least 1 when rate limiting is enabled",
			})
		}
	}

	errs = append(errs, validateTLS(&cfg.TLS)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)

	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.CertFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "is required when TLS is enabled"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "is required when TLS is enabled"})
	}
	if cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("unsupported version %q: must be '1.2' or '1.3'", cfg.MinVersion),
		})
	}
	if cfg.ClientAuth != "require" && cfg.ClientAuth != "verify_if_given" {
		errs = append(errs, FieldError{
			Field:   "server.tls.client_auth",
			Message: fmt.Sprintf("invalid client auth %q: must be 'require' or 'verify_if_given'", cfg.ClientAuth),
		})
	}
	errs = append(errs, positiveDuration("server.tls.reload_interval", cfg.ReloadInterval)...)
	return errs
}

var validScopes = map[string]bool{"export": true, "audit": true}

func validateAuth(cfg *AuthConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if len(cfg.Keys) == 0 {
		errs = append(errs, FieldError{Field: "server.auth.keys", Message: "at least one key is required when auth is enabled"})
	}

	seen := make(map[string]bool, len(cfg.Keys))
	for i, key := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		if key.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "is required"})
		}
		if key.Key == "" {
			errs = append(errs, FieldError{Field: field + ".key", Message: "is required"})
		} else if seen[key.Key] {
			errs = append(errs, FieldError{Field: field + ".key", Message: "duplicates an earlier key"})
		}
		seen[key.Key] = true
		for _, scope := range key.Scopes {
			if !validScopes[scope] {
				errs = append(errs, FieldError{
					Field:   field + ".scopes",
					Message: fmt.Sprintf("unknown scope %q (valid: export, audit)", scope),
				})
			}
		}
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.max_idle_conns",
				Message: "must not exceed max_open_conns",
			})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{Field: "audit.postgres.dsn", Message: "dsn is required for the postgres backend"})
		}
		if cfg.Postgres.MaxConns < 1 {
			errs = append(errs, FieldError{Field: "audit.postgres.max_conns", Message: "must be at least 1"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite', 'postgres', or 'memory'", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "audit.recorder.async_buffer", Message: "must not be negative"})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_records", Message: "must not be negative"})
	}
	if cfg.Retention.Enabled {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.PruneSchedule, err),
			})
		}
		if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
			errs = append(errs, FieldError{
				Field:   "audit.retention.archive_path",
				Message: "archive path is required when archive_before_delete is set",
			})
		}
	}

	return errs
}

// validateReferenceSources checks the service clients when no reference file
// is configured. Empty URLs are allowed here; commands that need reference
// data report them.
func validateReferenceSources(cfg *Config) []FieldError {
	if cfg.Reference.Path != "" {
		return nil
	}

	var errs []FieldError
	for _, svc := range []struct {
		field string
		cfg   *ServiceConfig
	}{
		{"info", &cfg.Info},
		{"casework", &cfg.Casework},
	} {
		if svc.cfg.BaseURL == "" {
			continue
		}
		u, err := url.Parse(svc.cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   svc.field + ".base_url",
				Message: fmt.Sprintf("invalid URL %q: must be an absolute http(s) URL", svc.cfg.BaseURL),
			})
		}
		if svc.cfg.MaxRetries < 0 {
			errs = append(errs, FieldError{Field: svc.field + ".max_retries", Message: "must not be negative"})
		}
		errs = append(errs, positiveDuration(svc.field+".timeout", svc.cfg.Timeout)...)
	}
	return errs
}

func validateGitReference(cfg *ReferenceConfig) []FieldError {
	if !cfg.GitEnabled() {
		return nil
	}

	var errs []FieldError
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "reference.path", Message: "is required when reference.git.repository is set"})
	}
	if cfg.Git.Depth < 0 {
		errs = append(errs, FieldError{Field: "reference.git.depth", Message: "must not be negative"})
	}
	if cfg.Git.PollInterval < 0 {
		errs = append(errs, FieldError{Field: "reference.git.poll_interval", Message: "must not be negative"})
	}
	errs = append(errs, positiveDuration("reference.git.timeout", cfg.Git.Timeout)...)

	auth := &cfg.Git.Auth
	switch auth.Type {
	case "none":
	case "token":
		if auth.Token == "" {
			errs = append(errs, FieldError{Field: "reference.git.auth.token", Message: "is required for token auth"})
		}
	case "basic":
		if auth.Username == "" {
			errs = append(errs, FieldError{Field: "reference.git.auth.username", Message: "is required for basic auth"})
		}
	case "ssh":
		if auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "reference.git.auth.ssh_key_path", Message: "is required for ssh auth"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "reference.git.auth.type",
			Message: fmt.Sprintf("unknown auth type %q (valid: none, token, basic, ssh)", auth.Type),
		})
	}
	return errs
}

func validateExport(cfg *ExportConfig) []FieldError {
	var errs []FieldError

	if cfg.FlushInterval < 1 {
		errs = append(errs, FieldError{Field: "export.flush_interval", Message: "must be at least 1"})
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, FieldError{
			Field:   "export.timezone",
			Message: fmt.Sprintf("unknown time zone %q", cfg.Timezone),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		field := fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i)
		if p.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "pattern name is required"})
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with '/'"})
		}
		for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
			if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.duration_buckets",
					Message: "buckets must be strictly increasing",
				})
				break
			}
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "path must start with '/'"})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "path must start with '/'"})
	}

	return errs
}

func positiveDuration(field string, d time.Duration) []FieldError {
	if d <= 0 {
		return []FieldError{{Field: field, Message: "must be positive"}}
	}
	return nil
}
