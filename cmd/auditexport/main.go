// auditexport produces CSV reports from the casework audit trail.
//
// It reads audit records from the audit store, enriches them with reference
// data from the info and casework services and writes one report per call:
// case data, topics, correspondents or allocations for one case type over a
// range of days.
//
// Usage:
//
//	# Serve GET /export, probes and metrics
//	auditexport run --config /etc/auditexport/config.yaml
//
//	# Write a report to a file
//	auditexport export --from 2019-06-01 --through 2019-06-30 \
//	    --case-type MIN --report-type CASE_DATA --out june.csv
//
//	# Load audit events from a JSON-lines file
//	auditexport ingest events.jsonl
//
//	# Apply the retention policy once
//	auditexport prune
package main

func main() {
	Execute()
}
