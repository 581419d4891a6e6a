package config

import "time"

// Config is the root configuration structure for the audit export service.
type Config struct {
	// Server contains HTTP server configuration for the export endpoint.
	Server ServerConfig `yaml:"server"`

	// Audit contains audit store, recorder and retention configuration.
	Audit AuditConfig `yaml:"audit"`

	// Info configures the info service client (case types, export fields,
	// users, teams).
	Info ServiceConfig `yaml:"info"`

	// Casework configures the casework service client (case topics).
	Casework ServiceConfig `yaml:"casework"`

	// Reference points at a static reference data file used instead of the
	// info and casework services when set.
	Reference ReferenceConfig `yaml:"reference"`

	// Export contains CSV export configuration.
	Export ExportConfig `yaml:"export"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures resolution of ${secret:name} references in
	// credential fields.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. Large exports stream for a
	// while, so this is generous.
	// Default: 10m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight exports
	// on shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// RateLimit throttles the export endpoint.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS serves HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`

	// Auth requires an API key on the export and audit endpoints.
	Auth AuthConfig `yaml:"auth"`
}

// TLSConfig configures HTTPS and optional client certificates.
type TLSConfig struct {
	// Enabled turns TLS on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the key pair is checked for changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables client certificate verification against the CAs
	// it contains.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth is "require" or "verify_if_given".
	// Default: "require"
	ClientAuth string `yaml:"client_auth"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	// Enabled turns authentication on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header carries the key. "Authorization" expects a Bearer token.
	// Default: "X-API-Key"
	Header string `yaml:"header"`

	// Keys lists the accepted keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Name identifies the caller in logs.
	Name string `yaml:"name"`

	// Key is the secret value.
	Key string `yaml:"key"`

	// Scopes lists the endpoints the key may call: "export", "audit".
	// Empty grants every scope.
	Scopes []string `yaml:"scopes"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// RateLimitConfig configures the export endpoint's token bucket.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained export rate.
	// Default: 2
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size.
	// Default: 5
	Burst int `yaml:"burst"`
}

// AuditConfig contains configuration for audit record storage.
type AuditConfig struct {
	// Backend selects the storage backend.
	// Options: "sqlite", "postgres", "memory"
	// "memory" is for tests and "run --dev" only: it loses records on exit
	// and snapshots each query result before streaming it.
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `yaml:"postgres"`

	// Recorder contains ingest configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL storage configuration.
type PostgresConfig struct {
	// DSN is the connection string.
	DSN string `yaml:"dsn"`

	// MaxConns is the maximum pool size.
	// Default: 20
	MaxConns int32 `yaml:"max_conns"`
}

// RecorderConfig contains audit ingest configuration.
type RecorderConfig struct {
	// AsyncBuffer is the async write buffer size. 0 writes synchronously.
	// Default: 0
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Enabled schedules pruning in run mode.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Days is the number of days to retain records. 0 keeps records forever.
	// Default: 365
	Days int `yaml:"days"`

	// MaxRecords caps the number of stored records. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is the cron expression for pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned records to ArchivePath first.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// ServiceConfig configures an HTTP reference data client.
type ServiceConfig struct {
	// BaseURL is the service root URL.
	BaseURL string `yaml:"base_url"`

	// Username and Password enable basic auth.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds each request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries on transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the initial retry backoff.
	// Default: 200ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// ReferenceConfig configures the static reference data file.
type ReferenceConfig struct {
	// Path is the YAML reference file. Empty means use the HTTP services.
	// When Git.Repository is set, Path is relative to the repository root.
	Path string `yaml:"path"`

	// Git syncs the reference file from a Git repository.
	Git GitReferenceConfig `yaml:"git"`
}

// GitReferenceConfig configures a Git repository holding the reference file.
type GitReferenceConfig struct {
	// Repository is the clone URL. Empty disables Git syncing.
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// LocalPath is where the repository is cloned.
	// Default: "data/reference"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. Zero clones everything.
	// Default: 1
	Depth int `yaml:"depth"`

	// PollInterval is how often the server pulls for changes. Zero disables
	// polling.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds a single clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth contains repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains Git credentials.
type GitAuthConfig struct {
	// Type is "none", "token", "basic" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is an access token used over HTTPS.
	Token string `yaml:"token"`

	// Username and Password are used by basic auth.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// SSHKeyPath is a private key file used by ssh auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase decrypts SSHKeyPath when set.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitEnabled reports whether the reference file is synced from Git.
func (c *ReferenceConfig) GitEnabled() bool {
	return c.Git.Repository != ""
}

// ExportConfig contains CSV export configuration.
type ExportConfig struct {
	// FlushInterval is the number of rows between output flushes.
	// Default: 100
	FlushInterval int `yaml:"flush_interval"`

	// Timezone is the IANA zone export dates and timestamps are read in.
	// Default: "UTC"
	Timezone string `yaml:"timezone"`
}

// Location returns the configured time zone, falling back to UTC.
func (c *ExportConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPII enables PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "casework"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "auditexport"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for export duration (seconds).
	// Default: [0.1, 0.5, 1, 5, 15, 60, 300]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each span export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "auditexport"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// LivenessPath is the liveness endpoint path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness endpoint path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each dependency check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// SecretsConfig configures where ${secret:name} references are looked up.
type SecretsConfig struct {
	// Dir holds one file per secret. Files take precedence over the
	// environment.
	Dir string `yaml:"dir"`

	// EnvPrefix prefixes the environment variable of each secret.
	// Default: "AUDITEXPORT_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`
}
