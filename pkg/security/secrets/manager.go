package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"casework-hq/auditexport/pkg/config"
)

var secretRef = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets from providers in priority order.
type Manager struct {
	providers []Provider
	logger    *slog.Logger
}

// NewManager creates a manager trying providers in order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		logger:    slog.Default().With("component", "secrets"),
	}
}

// NewManagerFromConfig builds a manager with the file provider (when a
// directory is configured) ahead of the environment provider.
func NewManagerFromConfig(cfg *config.SecretsConfig) (*Manager, error) {
	var providers []Provider
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))
	return NewManager(providers...), nil
}

// GetSecret returns the value from the first provider holding name.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			m.logger.Debug("secret resolved", "name", redact(name), "provider", p.Name())
			return value, nil
		}
		errs = append(errs, err)
		if !errors.Is(err, ErrNotFound) {
			break
		}
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s (no providers configured)", ErrNotFound, name)
	}
	return "", errors.Join(errs...)
}

// Resolve replaces every ${secret:name} in value. Values without references
// are returned unchanged.
func (m *Manager) Resolve(ctx context.Context, value string) (string, error) {
	if !strings.Contains(value, "${secret:") {
		return value, nil
	}

	var errs []error
	out := secretRef.ReplaceAllStringFunc(value, func(match string) string {
		name := secretRef.FindStringSubmatch(match)[1]
		resolved, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("secret %q: %w", name, err))
			return match
		}
		return resolved
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

// ResolveConfig resolves references in every credential field of cfg in
// place. Errors name the field they came from.
func (m *Manager) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"audit.postgres.dsn", &cfg.Audit.Postgres.DSN},
		{"info.username", &cfg.Info.Username},
		{"info.password", &cfg.Info.Password},
		{"casework.username", &cfg.Casework.Username},
		{"casework.password", &cfg.Casework.Password},
		{"reference.git.auth.token", &cfg.Reference.Git.Auth.Token},
		{"reference.git.auth.password", &cfg.Reference.Git.Auth.Password},
		{"reference.git.auth.ssh_key_passphrase", &cfg.Reference.Git.Auth.SSHKeyPassphrase},
	}
	for i := range cfg.Server.Auth.Keys {
		fields = append(fields, struct {
			name string
			ptr  *string
		}{fmt.Sprintf("server.auth.keys[%d].key", i), &cfg.Server.Auth.Keys[i].Key})
	}

	var errs []error
	for _, f := range fields {
		resolved, err := m.Resolve(ctx, *f.ptr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		*f.ptr = resolved
	}
	return errors.Join(errs...)
}

// redact keeps the first and last two characters of a secret name.
func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
