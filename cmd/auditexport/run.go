package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"casework-hq/auditexport/pkg/audit/recorder"
	"casework-hq/auditexport/pkg/audit/retention"
	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/info/gitsync"
	"casework-hq/auditexport/pkg/security/auth"
	servertls "casework-hq/auditexport/pkg/security/tls"
	"casework-hq/auditexport/pkg/server"
	"casework-hq/auditexport/pkg/server/handlers"
	"casework-hq/auditexport/pkg/telemetry/health"
	"casework-hq/auditexport/pkg/telemetry/metrics"
	"casework-hq/auditexport/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	watch         bool
	dryRun        bool
	dev           bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the export server",
	Long: `Start the HTTP server serving GET /export, POST /audit, health probes and
metrics. Scheduled retention pruning runs in the same process when
audit.retention.enabled is set.

Examples:
  # Start with a config file, reloading it on change
  auditexport run --config /etc/auditexport/config.yaml --watch

  # Override listen address
  auditexport run --listen 0.0.0.0:8080

  # Validate config without starting the server
  auditexport run --dry-run

  # Local development against the in-memory store
  auditexport run --dev`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload logging configuration when the config file changes")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
	runCmd.Flags().BoolVar(&runFlags.dev, "dev", false, "allow the non-persistent memory audit backend")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	printer := cli.NewPrinter(cmd.ErrOrStderr())

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.dryRun {
		printer.Success("configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	store, err := openStore(ctx, &cfg.Audit, runFlags.dev)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()

	dirs, err := newDirectories(ctx, cfg)
	if err != nil {
		return cli.NewConfigError("reference", err.Error())
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("audit_store", health.PingCheck(store), true)
	checker.RegisterCheck("info", dirs.infoCheck, true)
	checker.RegisterCheck("casework", dirs.caseworkCheck, false)

	svc := newExportService(cfg, store, dirs)

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
		svc.SetObserver(collector)
	}

	rec := recorder.NewRecorder(store, &recorder.Config{
		AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
	})
	defer rec.Close()

	var authMW *auth.Middleware
	if cfg.Server.Auth.Enabled {
		keys, err := auth.NewKeyStore(cfg.Server.Auth.Keys)
		if err != nil {
			return cli.NewConfigError("server.auth.keys", err.Error())
		}
		authMW = auth.NewMiddleware(keys, cfg.Server.Auth.Header, handlers.WriteError)
		printer.Info("API key authentication enabled (%d keys)", keys.Len())
	}

	var (
		tlsConfig *tls.Config
		reloader  *servertls.CertificateReloader
	)
	if cfg.Server.TLS.Enabled {
		tlsConfig, reloader, err = servertls.NewServerConfig(&cfg.Server.TLS)
		if err != nil {
			return cli.NewConfigError("server.tls", err.Error())
		}
	}

	srv := server.New(cfg, server.Dependencies{
		Exporter: svc,
		Recorder: rec,
		Auth:     authMW,
		TLS:      tlsConfig,
		Health:   checker,
		Metrics:  collector,
		Location: cfg.Export.Location(),
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(ctx)
	})

	if cfg.Audit.Retention.Enabled {
		pruner := retention.NewPruner(store, retentionConfig(&cfg.Audit.Retention))
		if collector != nil {
			pruner.OnResult(collector.RecordPrune)
		}
		if err := pruner.Start(ctx); err != nil {
			return cli.NewConfigError("audit.retention.prune_schedule", err.Error())
		}
		defer pruner.Stop()
		if next := pruner.NextPruning(); next != nil {
			printer.Info("retention pruning scheduled, next run %s", next.Format("2006-01-02 15:04:05"))
		}
	}

	if reloader != nil {
		g.Go(func() error {
			return reloader.Run(ctx)
		})
	}

	if dirs.reference != nil {
		poller := gitsync.NewPoller(dirs.reference, cfg.Reference.Git.PollInterval)
		if collector != nil {
			poller.OnSync(func(result *gitsync.SyncResult, err error) {
				collector.RecordReferenceSync(result != nil && result.ReferenceChanged, err)
			})
		}
		g.Go(func() error {
			return poller.Run(ctx)
		})
	}

	if runFlags.watch && cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		g.Go(func() error {
			return watcher.Watch(ctx, func(newCfg *config.Config) {
				if err := resolveSecrets(ctx, newCfg); err != nil {
					slog.Error("failed to resolve secrets in reloaded configuration", "error", err)
				}
				if logLevel != "" {
					newCfg.Telemetry.Logging.Level = logLevel
				}
				if err := setupLogging(&newCfg.Telemetry.Logging); err != nil {
					slog.Error("failed to apply reloaded logging configuration", "error", err)
				}
			})
		})
	}

	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}
	printer.Success("listening on %s", cfg.Server.ListenAddress)
	printer.Info("export:  %s://%s%s", scheme, cfg.Server.ListenAddress, server.ExportPath)
	printer.Info("audit:   %s://%s%s", scheme, cfg.Server.ListenAddress, server.AuditPath)
	printer.Info("health:  %s://%s%s", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	if collector != nil {
		printer.Info("metrics: %s://%s%s", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("server stopped: %w", err))
	}
	printer.Success("server stopped")
	return nil
}
