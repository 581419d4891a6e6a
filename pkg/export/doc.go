// Package export streams audit records as CSV reports.
//
// # Reports
//
// Four fixed report types are supported:
//
//   - CASE_DATA: case snapshots plus the case type's dynamic fields
//   - TOPICS: topics added to or removed from cases
//   - CORRESPONDENTS: correspondents added to or removed from cases
//   - ALLOCATIONS: stages allocated to teams
//
// Every report starts with the timestamp, event and userId columns taken
// from the audit record, followed by the report's fixed columns. CASE_DATA
// then appends one column per visible field definition returned by the info
// service for the case type.
//
// # Pipeline
//
// Service.Prepare validates the request and resolves the column schema. For
// CASE_DATA it also fetches the user, team and topic directories once and
// builds a Registry of field adapters, then resolves every field's adapter
// chain into a Converter. Configuration defects such as an unknown adapter
// tag surface here, before any output.
//
// Job.WriteTo runs one query over the audit store and, for each record in
// arrival order, decodes the payload, converts the dynamic fields and writes
// a CSV row:
//
//	job, err := svc.Prepare(ctx, &export.Request{
//	    From:       from,
//	    Through:    through,
//	    CaseType:   "MIN",
//	    ReportType: "CASE_DATA",
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := job.WriteTo(ctx, w)
//
// A record whose payload is not a JSON object is skipped. A field adapter
// that fails keeps the value it was given. Both are logged and reported to
// the service's Observer; neither stops the export.
package export
