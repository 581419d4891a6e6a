/*
Package cli provides command-line helpers for the auditexport command.

Status lines are written to stderr in colour so they never mix with a CSV
report streamed to stdout:

	p := cli.NewPrinter(nil)
	p.Success("wrote %d rows to %s", result.Rows, path)

Command summaries can be printed as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, summary); err != nil {
		return err
	}

Ingest progress is tracked by bytes read:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(info.Size())
	reader := cli.NewCountingReader(file, progress)

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors map to exit codes with ExitCode.
*/
package cli
