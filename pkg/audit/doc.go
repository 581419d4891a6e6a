// Package audit defines the audit record model, query filters, and the storage
// contract shared by the recorder, the retention pruner, and the CSV export
// pipeline.
//
// # Architecture
//
// The audit system consists of four layers:
//
//  1. Recorder - Validates CreateAudit commands and turns them into records
//  2. Storage Backend - Persists audit records (SQLite, PostgreSQL, memory)
//  3. Query - Validates and defaults filters before they reach a backend
//  4. Retention - Prunes old records on a cron schedule
//
// # Audit Records
//
// Each audit record captures:
//   - Case UUID (the last two characters encode the case type short code)
//   - Correlation ID and raising service
//   - Raw JSON payload, stored verbatim
//   - Namespace (environment tag)
//   - Event kind and acting user
//   - Event timestamp
//
// Records are immutable once stored. The export pipeline only reads them.
//
// # Querying
//
//	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
//	end := time.Date(2019, 6, 1, 23, 59, 59, 999999000, time.UTC)
//	q := &audit.Query{
//	    StartTime:         &start,
//	    EndTime:           &end,
//	    Types:             []string{audit.EventCaseCreated, audit.EventCaseUpdated},
//	    CaseTypeShortCode: "a1",
//	}
//
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    return err
//	}
//	for record := range recordsCh {
//	    // Process record
//	}
//	if err := <-errCh; err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// All storage backends are safe for concurrent use. A single QueryStream is
// owned by one consumer.
package audit
