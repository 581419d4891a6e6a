// Package logging provides structured logging with context fields and PII
// redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging in JSON or text format
//   - Context fields (request, export run, case type, report type, trace)
//   - PII redaction of emails, telephone numbers and postcodes
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
// Packages log through slog.Default() and pass their context along:
//
//	ctx = logging.WithExportID(ctx, id)
//	slog.Default().InfoContext(ctx, "export started")  // includes export_id
//
// # PII Redaction
//
// With RedactPII enabled, string values are scanned for known patterns and
// values under sensitive keys (password, token, telephone) are masked:
//
//   - Emails: user@example.com → u***@example.com
//   - Telephone: 020 7219 3000 → ***********
//   - Postcodes: SW1A 0AA → *** ***
package logging
