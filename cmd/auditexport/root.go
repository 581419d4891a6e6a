package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/security/secrets"
	"casework-hq/auditexport/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "auditexport",
	Short: "Casework audit export service",
	Long: `auditexport turns the casework audit trail into CSV reports.

Reports are produced per case type and date range:
  - CASE_DATA       case creation and updates, with the case type's own fields
  - TOPICS          topics added to and removed from cases
  - CORRESPONDENTS  correspondents added to and removed from cases
  - ALLOCATIONS     stage creation and team allocation

Configuration is read from the file given with --config, then overridden by
AUDITEXPORT_* environment variables.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.NewPrinter(os.Stderr).Fail("%v", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig initializes the global configuration and the default logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	cfg := config.GetConfig()

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if err := setupLogging(&cfg.Telemetry.Logging); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := resolveSecrets(ctx, cfg); err != nil {
		return cli.NewConfigError("secrets", err.Error())
	}
	return nil
}

// resolveSecrets replaces ${secret:name} references in cfg's credential
// fields.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	mgr, err := secrets.NewManagerFromConfig(&cfg.Secrets)
	if err != nil {
		return err
	}
	return mgr.ResolveConfig(ctx, cfg)
}

func setupLogging(cfg *config.LoggingConfig) error {
	logger, err := logging.New(logging.FromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefault()
	return nil
}
