package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for export spans.
const (
	AttrExportID         = "export.id"
	AttrCaseType         = "export.case_type"
	AttrReportType       = "export.report_type"
	AttrRows             = "export.rows"
	AttrSkipped          = "export.skipped"
	AttrAdapterFailures  = "export.adapter_failures"
	AttrRangeFrom        = "export.range.from"
	AttrRangeThrough     = "export.range.through"
	AttrRetentionDeleted = "retention.deleted"
)

// ExportAttributes returns the identifying attributes of an export span.
func ExportAttributes(exportID, caseType, reportType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrExportID, exportID),
		attribute.String(AttrCaseType, caseType),
		attribute.String(AttrReportType, reportType),
	}
}

// SetExportCounts records the outcome counters of an export on span.
func SetExportCounts(span trace.Span, rows, skipped, adapterFailures int) {
	span.SetAttributes(
		attribute.Int(AttrRows, rows),
		attribute.Int(AttrSkipped, skipped),
		attribute.Int(AttrAdapterFailures, adapterFailures),
	)
}
