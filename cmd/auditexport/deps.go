package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"casework-hq/auditexport/pkg/audit"
	"casework-hq/auditexport/pkg/audit/storage"
	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/export"
	"casework-hq/auditexport/pkg/info"
	"casework-hq/auditexport/pkg/info/gitsync"
	"casework-hq/auditexport/pkg/telemetry/health"
)

// errMemoryBackend rejects the memory backend outside development runs: it
// buffers every query result and loses all records on exit.
var errMemoryBackend = errors.New(`audit.backend "memory" buffers query results and is not persisted; it is only available with "run --dev"`)

// openStore opens the configured audit store backend. The memory backend
// needs allowMemory.
func openStore(ctx context.Context, cfg *config.AuditConfig, allowMemory bool) (audit.Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres storage: %w", err)
		}
		return s, nil
	case "memory":
		if !allowMemory {
			return nil, errMemoryBackend
		}
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}

// directories holds the reference data sources of an export service.
type directories struct {
	info     export.InfoService
	casework export.CaseworkService

	// checks are registered with the readiness checker. Only the info
	// directory is critical: without casework only CASE_DATA is affected.
	infoCheck     health.CheckFunc
	caseworkCheck health.CheckFunc

	// reference is the Git checkout serving the reference file, if any.
	reference *gitsync.Repository
}

var errCaseworkNotConfigured = errors.New("casework service not configured (set casework.base_url or reference.path)")

// newDirectories builds the reference data sources: a YAML file when
// reference.path is set, the info and casework HTTP services otherwise. With
// reference.git configured the file is read from a synced checkout.
func newDirectories(ctx context.Context, cfg *config.Config) (*directories, error) {
	if cfg.Reference.GitEnabled() {
		repo, err := gitsync.NewRepository(&cfg.Reference.Git, cfg.Reference.Path)
		if err != nil {
			return nil, err
		}
		if _, err := repo.Sync(ctx); err != nil {
			if _, statErr := os.Stat(repo.ReferencePath()); statErr != nil {
				return nil, fmt.Errorf("failed to sync reference repository: %w", err)
			}
			slog.Warn("reference sync failed, serving existing checkout",
				"path", repo.ReferencePath(),
				"error", err,
			)
		}
		dirs := fileDirectories(repo.ReferencePath())
		dirs.reference = repo
		return dirs, nil
	}

	if cfg.Reference.Path != "" {
		return fileDirectories(cfg.Reference.Path), nil
	}

	if cfg.Info.BaseURL == "" {
		return nil, errors.New("no reference data source: set reference.path or info.base_url")
	}
	infoClient := info.NewClient(clientConfig(&cfg.Info))
	dirs := &directories{
		info:      infoClient,
		infoCheck: health.PingCheck(infoClient),
	}

	if cfg.Casework.BaseURL == "" {
		dirs.casework = unconfiguredCasework{}
		dirs.caseworkCheck = func(context.Context) error { return errCaseworkNotConfigured }
		return dirs, nil
	}
	caseworkClient := info.NewCaseworkClient(clientConfig(&cfg.Casework))
	dirs.casework = caseworkClient
	dirs.caseworkCheck = health.PingCheck(caseworkClient)
	return dirs, nil
}

func fileDirectories(path string) *directories {
	file := info.NewFileDirectory(path)
	return &directories{
		info:          file,
		casework:      file,
		infoCheck:     health.PingCheck(file),
		caseworkCheck: health.PingCheck(file),
	}
}

func clientConfig(cfg *config.ServiceConfig) info.ClientConfig {
	return info.ClientConfig{
		BaseURL:      cfg.BaseURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
}

// unconfiguredCasework fails topic lookups, so only reports that need the
// topic directory are affected.
type unconfiguredCasework struct{}

func (unconfiguredCasework) CaseTopics(context.Context) ([]info.Topic, error) {
	return nil, info.NewDirectoryError("casework", "topics", 0, errCaseworkNotConfigured)
}

// newExportService wires the export service to its store and directories.
func newExportService(cfg *config.Config, store audit.Storage, dirs *directories) *export.Service {
	return export.NewService(store, dirs.info, dirs.casework, &export.Config{
		FlushInterval: cfg.Export.FlushInterval,
		Location:      cfg.Export.Location(),
	})
}
