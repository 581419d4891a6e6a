package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/export"
)

var exportFlags struct {
	from       string
	through    string
	caseType   string
	reportType string
	out        string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a CSV report",
	Long: `Write one CSV report for a case type and an inclusive range of days.

The report is written to --out, or to a file named after the report in the
current directory when --out is empty. Use --out - for stdout.

Examples:
  # Case data for June 2019
  auditexport export --from 2019-06-01 --through 2019-06-30 --case-type MIN --report-type CASE_DATA

  # Topics for one day, to stdout
  auditexport export --from 2019-06-03 --through 2019-06-03 --case-type MIN --report-type TOPICS --out -`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFlags.from, "from", "", "first day of the range (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportFlags.through, "through", "", "last day of the range (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportFlags.caseType, "case-type", "", "case type code, e.g. MIN")
	exportCmd.Flags().StringVar(&exportFlags.reportType, "report-type", "",
		"report type ("+strings.Join(reportTypeNames(), ", ")+")")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "", "output file, - for stdout")

	for _, name := range []string{"from", "through", "case-type", "report-type"} {
		_ = exportCmd.MarkFlagRequired(name)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	loc := cfg.Export.Location()
	from, err := export.ParseDate(exportFlags.from, loc)
	if err != nil {
		return cli.NewUsageError("export", err)
	}
	through, err := export.ParseDate(exportFlags.through, loc)
	if err != nil {
		return cli.NewUsageError("export", err)
	}

	store, err := openStore(ctx, &cfg.Audit, false)
	if err != nil {
		return cli.NewCommandError("export", err)
	}
	defer store.Close()

	dirs, err := newDirectories(ctx, cfg)
	if err != nil {
		return cli.NewConfigError("reference", err.Error())
	}
	svc := newExportService(cfg, store, dirs)

	job, err := svc.Prepare(ctx, &export.Request{
		From:       from,
		Through:    through,
		CaseType:   exportFlags.caseType,
		ReportType: exportFlags.reportType,
	})
	if err != nil {
		var adapterErr *export.UnknownAdapterTypeError
		if export.IsRequestError(err) || errors.As(err, &adapterErr) {
			return cli.NewUsageError("export", err)
		}
		return cli.NewCommandError("export", err)
	}

	path := exportFlags.out
	if path == "" {
		path = job.Filename()
	}
	w, closeOutput, err := openOutput(path, cmd.OutOrStdout())
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	result, err := job.WriteTo(ctx, w)
	if closeErr := closeOutput(); err == nil {
		err = closeErr
	}
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	printer := cli.NewPrinter(cmd.ErrOrStderr())
	printer.Success("wrote %d rows to %s", result.Rows, displayPath(path))
	if result.Skipped > 0 {
		printer.Warn("%d records skipped: payload could not be decoded", result.Skipped)
	}
	if result.AdapterFailures > 0 {
		printer.Warn("%d values left unconverted: adapter failed", result.AdapterFailures)
	}
	return nil
}

// openOutput opens path for writing, or returns stdout for "-".
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func displayPath(path string) string {
	if path == "-" {
		return "stdout"
	}
	return path
}

func reportTypeNames() []string {
	types := export.ReportTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
