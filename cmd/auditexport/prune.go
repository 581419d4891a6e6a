package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"casework-hq/auditexport/pkg/audit/retention"
	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
)

var pruneFlags struct {
	days       int
	maxRecords int64
	output     string
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy once",
	Long: `Delete audit records older than the retention period, then the oldest
records beyond the maximum record count. Flags override audit.retention.

Examples:
  # Apply the configured policy
  auditexport prune

  # Keep 90 days
  auditexport prune --days 90`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", -1, "retention period in days (0 keeps records forever)")
	pruneCmd.Flags().Int64Var(&pruneFlags.maxRecords, "max-records", -1, "maximum records to keep (0 is unlimited)")
	pruneCmd.Flags().StringVar(&pruneFlags.output, "output", "text", "summary format (text, json)")
}

type pruneSummary struct {
	Deleted int64 `json:"deleted"`
}

func (s pruneSummary) String() string {
	return fmt.Sprintf("deleted %d records", s.Deleted)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	format, err := cli.ParseOutputFormat(pruneFlags.output)
	if err != nil {
		return cli.NewUsageError("prune", err)
	}

	store, err := openStore(ctx, &cfg.Audit, false)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	defer store.Close()

	rc := retentionConfig(&cfg.Audit.Retention)
	if pruneFlags.days >= 0 {
		rc.RetentionDays = pruneFlags.days
	}
	if pruneFlags.maxRecords >= 0 {
		rc.MaxRecords = pruneFlags.maxRecords
	}

	deleted, err := retention.NewPruner(store, rc).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), pruneSummary{Deleted: deleted})
}

func retentionConfig(cfg *config.RetentionConfig) *retention.Config {
	return &retention.Config{
		RetentionDays:       cfg.Days,
		PruneSchedule:       cfg.PruneSchedule,
		ArchiveBeforeDelete: cfg.ArchiveBeforeDelete,
		ArchivePath:         cfg.ArchivePath,
		MaxRecords:          cfg.MaxRecords,
	}
}
