package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ExportIDKey is the context key for export run IDs.
	ExportIDKey contextKey = "export_id"

	// CaseTypeKey is the context key for the exported case type.
	CaseTypeKey contextKey = "case_type"

	// ReportTypeKey is the context key for the exported report type.
	ReportTypeKey contextKey = "report_type"

	// UserKey is the context key for the calling user.
	UserKey contextKey = "user"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithExportID adds an export run ID to the context.
func WithExportID(ctx context.Context, exportID string) context.Context {
	return context.WithValue(ctx, ExportIDKey, exportID)
}

// GetExportID retrieves the export run ID from the context.
func GetExportID(ctx context.Context) string {
	return stringValue(ctx, ExportIDKey)
}

// WithCaseType adds the exported case type to the context.
func WithCaseType(ctx context.Context, caseType string) context.Context {
	return context.WithValue(ctx, CaseTypeKey, caseType)
}

// GetCaseType retrieves the exported case type from the context.
func GetCaseType(ctx context.Context) string {
	return stringValue(ctx, CaseTypeKey)
}

// WithReportType adds the exported report type to the context.
func WithReportType(ctx context.Context, reportType string) context.Context {
	return context.WithValue(ctx, ReportTypeKey, reportType)
}

// GetReportType retrieves the exported report type from the context.
func GetReportType(ctx context.Context) string {
	return stringValue(ctx, ReportTypeKey)
}

// WithUser adds the calling user to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the calling user from the context.
func GetUser(ctx context.Context) string {
	return stringValue(ctx, UserKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if exportID := GetExportID(ctx); exportID != "" {
		fields = append(fields, "export_id", exportID)
	}

	if caseType := GetCaseType(ctx); caseType != "" {
		fields = append(fields, "case_type", caseType)
	}

	if reportType := GetReportType(ctx); reportType != "" {
		fields = append(fields, "report_type", reportType)
	}

	if user := GetUser(ctx); user != "" {
		fields = append(fields, "user", user)
	}

	// Trace and span IDs come from the active OpenTelemetry span
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}

	return fields
}
