package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "AUDITEXPORT"

// LoadConfig loads configuration from a YAML file at the specified path.
// Keys missing from the file keep their defaults. The result is validated
// but not modified by environment variables; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Defaults and fills any remaining zero values.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables are named AUDITEXPORT_SECTION_FIELD
// (e.g. AUDITEXPORT_SERVER_LISTEN_ADDRESS) and always win over the file.
//
// An empty path skips the file and starts from Defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Defaults()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	// The environment may enable sections the file left empty.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// envOverrides lists every field that can be set from the environment. Fields
// are pointers so an unset variable leaves the loaded value alone.
type envOverrides struct {
	ServerListenAddress    *string        `split_words:"true"`
	ServerReadTimeout      *time.Duration `split_words:"true"`
	ServerWriteTimeout     *time.Duration `split_words:"true"`
	ServerShutdownTimeout  *time.Duration `split_words:"true"`
	ServerRateLimitEnabled *bool          `split_words:"true"`
	ServerRateLimitRps     *float64       `split_words:"true"`
	ServerRateLimitBurst   *int           `split_words:"true"`

	AuditBackend           *string `split_words:"true"`
	AuditSqlitePath        *string `split_words:"true"`
	AuditSqliteDriver      *string `split_words:"true"`
	AuditPostgresDsn       *string `split_words:"true"`
	AuditPostgresMaxConns  *int32  `split_words:"true"`
	AuditAsyncBuffer       *int    `split_words:"true"`
	AuditRetentionEnabled  *bool   `split_words:"true"`
	AuditRetentionDays     *int    `split_words:"true"`
	AuditRetentionSchedule *string `split_words:"true"`

	InfoBaseUrl       *string `split_words:"true"`
	InfoUsername      *string `split_words:"true"`
	InfoPassword      *string `split_words:"true"`
	CaseworkBaseUrl   *string `split_words:"true"`
	CaseworkUsername  *string `split_words:"true"`
	CaseworkPassword  *string `split_words:"true"`
	ReferencePath     *string `split_words:"true"`
	ReferenceGitRepo  *string `split_words:"true"`
	ReferenceGitToken *string `split_words:"true"`

	ExportFlushInterval *int    `split_words:"true"`
	ExportTimezone      *string `split_words:"true"`

	LogLevel           *string  `split_words:"true"`
	LogFormat          *string  `split_words:"true"`
	LogRedactPii       *bool    `split_words:"true"`
	MetricsEnabled     *bool    `split_words:"true"`
	TracingEnabled     *bool    `split_words:"true"`
	TracingEndpoint    *string  `split_words:"true"`
	TracingSampleRatio *float64 `split_words:"true"`
}

// ApplyEnvOverrides applies AUDITEXPORT_* environment variables to cfg.
func ApplyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	set(&cfg.Server.ListenAddress, env.ServerListenAddress)
	set(&cfg.Server.ReadTimeout, env.ServerReadTimeout)
	set(&cfg.Server.WriteTimeout, env.ServerWriteTimeout)
	set(&cfg.Server.ShutdownTimeout, env.ServerShutdownTimeout)
	set(&cfg.Server.RateLimit.Enabled, env.ServerRateLimitEnabled)
	set(&cfg.Server.RateLimit.RequestsPerSecond, env.ServerRateLimitRps)
	set(&cfg.Server.RateLimit.Burst, env.ServerRateLimitBurst)

	set(&cfg.Audit.Backend, env.AuditBackend)
	set(&cfg.Audit.SQLite.Path, env.AuditSqlitePath)
	set(&cfg.Audit.SQLite.Driver, env.AuditSqliteDriver)
	set(&cfg.Audit.Postgres.DSN, env.AuditPostgresDsn)
	set(&cfg.Audit.Postgres.MaxConns, env.AuditPostgresMaxConns)
	set(&cfg.Audit.Recorder.AsyncBuffer, env.AuditAsyncBuffer)
	set(&cfg.Audit.Retention.Enabled, env.AuditRetentionEnabled)
	set(&cfg.Audit.Retention.Days, env.AuditRetentionDays)
	set(&cfg.Audit.Retention.PruneSchedule, env.AuditRetentionSchedule)

	set(&cfg.Info.BaseURL, env.InfoBaseUrl)
	set(&cfg.Info.Username, env.InfoUsername)
	set(&cfg.Info.Password, env.InfoPassword)
	set(&cfg.Casework.BaseURL, env.CaseworkBaseUrl)
	set(&cfg.Casework.Username, env.CaseworkUsername)
	set(&cfg.Casework.Password, env.CaseworkPassword)
	set(&cfg.Reference.Path, env.ReferencePath)
	set(&cfg.Reference.Git.Repository, env.ReferenceGitRepo)
	set(&cfg.Reference.Git.Auth.Token, env.ReferenceGitToken)

	set(&cfg.Export.FlushInterval, env.ExportFlushInterval)
	set(&cfg.Export.Timezone, env.ExportTimezone)

	set(&cfg.Telemetry.Logging.Level, env.LogLevel)
	set(&cfg.Telemetry.Logging.Format, env.LogFormat)
	set(&cfg.Telemetry.Logging.RedactPII, env.LogRedactPii)
	set(&cfg.Telemetry.Metrics.Enabled, env.MetricsEnabled)
	set(&cfg.Telemetry.Tracing.Enabled, env.TracingEnabled)
	set(&cfg.Telemetry.Tracing.Endpoint, env.TracingEndpoint)
	set(&cfg.Telemetry.Tracing.SampleRatio, env.TracingSampleRatio)

	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
