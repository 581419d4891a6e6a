package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"casework-hq/auditexport/pkg/audit/recorder"
	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
)

var ingestFlags struct {
	continueOnError bool
	output          string
	progress        bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Load audit events from a JSON-lines file",
	Long: `Load CreateAudit commands, one JSON object per line, into the audit store.

Each line carries correlation_id, raising_service, namespace, type and
user_id, plus optional audit_payload, case_uuid and audit_timestamp. Records
get a new ID and, without audit_timestamp, the current time. Reads stdin
when no file is given.

Example line:
  {"correlation_id":"c-1","raising_service":"casework","namespace":"ns","type":"CASE_TOPIC_CREATED","user_id":"u-1","case_uuid":"...a1","audit_payload":{"topicUuid":"t-1","topicName":"Animals"}}`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestFlags.continueOnError, "continue-on-error", false, "skip commands the recorder rejects instead of stopping")
	ingestCmd.Flags().StringVar(&ingestFlags.output, "output", "text", "summary format (text, json)")
	ingestCmd.Flags().BoolVar(&ingestFlags.progress, "progress", false, "show a progress bar while reading a file")
}

// ingestSummary is printed when ingest finishes.
type ingestSummary struct {
	Ingested int   `json:"ingested"`
	Rejected int   `json:"rejected"`
	Bytes    int64 `json:"bytes"`
}

func (s ingestSummary) String() string {
	return fmt.Sprintf("ingested %d records, rejected %d (%d bytes read)", s.Ingested, s.Rejected, s.Bytes)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	format, err := cli.ParseOutputFormat(ingestFlags.output)
	if err != nil {
		return cli.NewUsageError("ingest", err)
	}

	var (
		input    io.Reader = cmd.InOrStdin()
		progress cli.ProgressReporter
	)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return cli.NewUsageError("ingest", err)
		}
		defer f.Close()
		input = f

		if ingestFlags.progress {
			if st, err := f.Stat(); err == nil {
				progress = cli.NewProgressReporter(cmd.ErrOrStderr())
				progress.Start(st.Size())
			}
		}
	}
	reader := cli.NewCountingReader(input, progress)

	store, err := openStore(ctx, &cfg.Audit, false)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}
	defer store.Close()

	// Synchronous writes, so every rejected command is counted.
	rec := recorder.NewRecorder(store, &recorder.Config{
		AsyncBuffer:  0,
		WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
	})
	defer rec.Close()

	logger := slog.Default().With("component", "ingest")
	var summary ingestSummary
	err = recorder.DecodeCommands(reader, func(line int, c *recorder.CreateAudit) error {
		if _, err := rec.Record(ctx, c); err != nil {
			summary.Rejected++
			if !ingestFlags.continueOnError {
				return fmt.Errorf("line %d: %w", line, err)
			}
			logger.Warn("audit command rejected", "line", line, "error", err)
			return nil
		}
		summary.Ingested++
		return nil
	})
	if progress != nil {
		progress.Finish()
	}
	summary.Bytes = reader.BytesRead()

	if fmtErr := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary); fmtErr != nil && err == nil {
		err = fmtErr
	}
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}
	return nil
}
