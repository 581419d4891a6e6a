package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultRateLimitRPS    = 2.0
	DefaultRateLimitBurst  = 5
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute
	DefaultTLSClientAuth   = "require"
	DefaultAuthHeader      = "X-API-Key"

	// Audit defaults
	DefaultAuditBackend           = "sqlite"
	DefaultSQLitePath             = "data/audit.db"
	DefaultSQLiteDriver           = "sqlite3"
	DefaultSQLiteMaxOpenConns     = 10
	DefaultSQLiteMaxIdleConns     = 5
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultPostgresMaxConns       = int32(20)
	DefaultRecorderWriteTimeout   = 5 * time.Second
	DefaultRetentionDays          = 365
	DefaultRetentionPruneSchedule = "0 3 * * *"
	DefaultRetentionArchivePath   = "data/archives/"

	// Service client defaults
	DefaultServiceTimeout      = 10 * time.Second
	DefaultServiceMaxRetries   = 2
	DefaultServiceRetryBackoff = 200 * time.Millisecond

	// Reference defaults
	DefaultGitBranch       = "main"
	DefaultGitLocalPath    = "data/reference"
	DefaultGitDepth        = 1
	DefaultGitPollInterval = 5 * time.Minute
	DefaultGitTimeout      = 30 * time.Second
	DefaultGitAuthType     = "none"

	// Export defaults
	DefaultExportFlushInterval = 100
	DefaultExportTimezone      = "UTC"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "casework"
	DefaultMetricsSubsystem   = "auditexport"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "auditexport"
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second

	// Secrets defaults
	DefaultSecretsEnvPrefix = "AUDITEXPORT_SECRET_"
)

// DefaultDurationBuckets are the export duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300}

// Defaults returns a configuration with every default applied, including the
// boolean options that default to true. LoadConfig decodes YAML on top of it
// so an explicit false in the file survives.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Server.RateLimit.Enabled = true
	cfg.Audit.SQLite.WALMode = true
	cfg.Telemetry.Logging.RedactPII = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. It is
// idempotent and never overrides a value that is already set.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyAuditDefaults(&cfg.Audit)
	applyServiceDefaults(&cfg.Info)
	applyServiceDefaults(&cfg.Casework)
	applyGitDefaults(&cfg.Reference.Git)

	if cfg.Export.FlushInterval == 0 {
		cfg.Export.FlushInterval = DefaultExportFlushInterval
	}
	if cfg.Export.Timezone == "" {
		cfg.Export.Timezone = DefaultExportTimezone
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
}

func applyGitDefaults(cfg *GitReferenceConfig) {
	if cfg.Repository == "" {
		return
	}
	if cfg.Branch == "" {
		cfg.Branch = DefaultGitBranch
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = DefaultGitLocalPath
	}
	if cfg.Depth == 0 {
		cfg.Depth = DefaultGitDepth
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultGitPollInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultGitTimeout
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = DefaultGitAuthType
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.TLS.MinVersion == "" {
		cfg.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.TLS.ReloadInterval == 0 {
		cfg.TLS.ReloadInterval = DefaultTLSReload
	}
	if cfg.TLS.ClientAuth == "" {
		cfg.TLS.ClientAuth = DefaultTLSClientAuth
	}
	if cfg.Auth.Header == "" {
		cfg.Auth.Header = DefaultAuthHeader
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultAuditBackend
	}

	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.SQLite.MaxIdleConns == 0 {
		cfg.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}

	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}

	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = DefaultRetentionArchivePath
	}
}

func applyServiceDefaults(cfg *ServiceConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultServiceTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultServiceMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = DefaultServiceRetryBackoff
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Metrics.DurationBuckets) == 0 {
		cfg.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
