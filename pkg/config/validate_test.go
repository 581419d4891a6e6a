package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "listen address without port",
			modify:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "rate limit without rate",
			modify:    func(c *Config) { c.Server.RateLimit.RequestsPerSecond = -1 },
			wantField: "server.rate_limit.requests_per_second",
		},
		{
			name:      "tls without cert",
			modify:    func(c *Config) { c.Server.TLS.Enabled = true; c.Server.TLS.KeyFile = "server.key" },
			wantField: "server.tls.cert_file",
		},
		{
			name: "tls 1.1",
			modify: func(c *Config) {
				c.Server.TLS = TLSConfig{Enabled: true, CertFile: "a", KeyFile: "b", MinVersion: "1.1", ClientAuth: "require", ReloadInterval: time.Minute}
			},
			wantField: "server.tls.min_version",
		},
		{
			name:      "auth without keys",
			modify:    func(c *Config) { c.Server.Auth.Enabled = true },
			wantField: "server.auth.keys",
		},
		{
			name: "auth duplicate key",
			modify: func(c *Config) {
				c.Server.Auth.Enabled = true
				c.Server.Auth.Keys = []APIKeyConfig{{Name: "a", Key: "k"}, {Name: "b", Key: "k"}}
			},
			wantField: "server.auth.keys[1].key",
		},
		{
			name: "auth unknown scope",
			modify: func(c *Config) {
				c.Server.Auth.Enabled = true
				c.Server.Auth.Keys = []APIKeyConfig{{Name: "a", Key: "k", Scopes: []string{"admin"}}}
			},
			wantField: "server.auth.keys[0].scopes",
		},
		{
			name:      "unknown backend",
			modify:    func(c *Config) { c.Audit.Backend = "mongo" },
			wantField: "audit.backend",
		},
		{
			name:      "unknown sqlite driver",
			modify:    func(c *Config) { c.Audit.SQLite.Driver = "duckdb" },
			wantField: "audit.sqlite.driver",
		},
		{
			name:      "postgres without dsn",
			modify:    func(c *Config) { c.Audit.Backend = "postgres" },
			wantField: "audit.postgres.dsn",
		},
		{
			name: "bad prune schedule",
			modify: func(c *Config) {
				c.Audit.Retention.Enabled = true
				c.Audit.Retention.PruneSchedule = "every day"
			},
			wantField: "audit.retention.prune_schedule",
		},
		{
			name:      "relative info URL",
			modify:    func(c *Config) { c.Info.BaseURL = "info-service" },
			wantField: "info.base_url",
		},
		{
			name:      "git reference without path",
			modify:    func(c *Config) { c.Reference.Git.Repository = "https://git.example.com/ref.git" },
			wantField: "reference.path",
		},
		{
			name: "git token auth without token",
			modify: func(c *Config) {
				c.Reference.Path = "reference.yaml"
				c.Reference.Git.Repository = "https://git.example.com/ref.git"
				c.Reference.Git.Timeout = time.Second
				c.Reference.Git.Auth.Type = "token"
			},
			wantField: "reference.git.auth.token",
		},
		{
			name: "git unknown auth type",
			modify: func(c *Config) {
				c.Reference.Path = "reference.yaml"
				c.Reference.Git.Repository = "https://git.example.com/ref.git"
				c.Reference.Git.Timeout = time.Second
				c.Reference.Git.Auth.Type = "kerberos"
			},
			wantField: "reference.git.auth.type",
		},
		{
			name:      "zero flush interval",
			modify:    func(c *Config) { c.Export.FlushInterval = 0 },
			wantField: "export.flush_interval",
		},
		{
			name:      "unknown timezone",
			modify:    func(c *Config) { c.Export.Timezone = "Mars/Olympus" },
			wantField: "export.timezone",
		},
		{
			name:      "invalid log level",
			modify:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name: "invalid redact pattern",
			modify: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "case", Pattern: "("}}
			},
			wantField: "telemetry.logging.redact_patterns[0].pattern",
		},
		{
			name:      "unsorted buckets",
			modify:    func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{1, 0.5} },
			wantField: "telemetry.metrics.duration_buckets",
		},
		{
			name:      "sample ratio out of range",
			modify:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestValidate_ReferenceFileSkipsServiceChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Info.BaseURL = "not a url"
	cfg.Reference.Path = "reference.yaml"

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no error with reference file, got %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("unexpected message: %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	msg := multi.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "  - b: worse") {
		t.Errorf("unexpected message: %q", msg)
	}
}
