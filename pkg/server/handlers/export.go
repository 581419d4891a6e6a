package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"casework-hq/auditexport/pkg/export"
	"casework-hq/auditexport/pkg/security/auth"
	"casework-hq/auditexport/pkg/telemetry/logging"
)

// Query parameters of GET /export.
const (
	ParamFromDate   = "fromDate"
	ParamToDate     = "toDate"
	ParamCaseType   = "caseType"
	ParamExportType = "exportType"
)

// Exporter prepares export jobs.
type Exporter interface {
	Prepare(ctx context.Context, req *export.Request) (*export.Job, error)
}

// ExportHandler streams a CSV report.
//
// Everything that can reject the request (parameters, case type, report type,
// view schema, adapter tags) is checked before the status line is written,
// so those failures get a JSON error body. A failure once rows are flowing
// aborts the connection, leaving the client with a truncated transfer rather
// than a short file that looks complete.
type ExportHandler struct {
	exporter Exporter
	location *time.Location
	logger   *slog.Logger
}

// NewExportHandler creates an export handler. Dates are read in loc.
func NewExportHandler(exporter Exporter, loc *time.Location) *ExportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportHandler{
		exporter: exporter,
		location: loc,
		logger:   slog.Default().With("component", "server.export"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := h.parseRequest(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	job, err := h.exporter.Prepare(ctx, req)
	if err != nil {
		status, _, _ := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "export could not start", "error", err)
		}
		WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": job.Filename()}))
	w.Header().Set("X-Export-ID", job.ID)
	w.WriteHeader(http.StatusOK)

	ctx = logging.WithExportID(ctx, job.ID)
	if p, ok := auth.PrincipalFrom(ctx); ok {
		h.logger.InfoContext(ctx, "export requested",
			"principal", p.Name,
			"case_type", req.CaseType,
			"report_type", req.ReportType,
		)
	}
	if _, err := job.WriteTo(ctx, newFlushWriter(w)); err != nil {
		h.logger.ErrorContext(ctx, "export aborted after output started", "error", err)
		panic(http.ErrAbortHandler)
	}
}

func (h *ExportHandler) parseRequest(r *http.Request) (*export.Request, error) {
	q := r.URL.Query()

	for _, name := range []string{ParamFromDate, ParamToDate, ParamCaseType, ParamExportType} {
		if q.Get(name) == "" {
			return nil, &ParamError{Param: name, Message: "is required"}
		}
	}

	from, err := export.ParseDate(q.Get(ParamFromDate), h.location)
	if err != nil {
		return nil, &ParamError{Param: ParamFromDate, Message: err.Error()}
	}
	through, err := export.ParseDate(q.Get(ParamToDate), h.location)
	if err != nil {
		return nil, &ParamError{Param: ParamToDate, Message: err.Error()}
	}

	return &export.Request{
		From:       from,
		Through:    through,
		CaseType:   q.Get(ParamCaseType),
		ReportType: q.Get(ParamExportType),
	}, nil
}

// flushWriter pushes every write to the client so a long export streams
// instead of accumulating in the server's buffers.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	return &flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, fmt.Errorf("failed to flush response: %w", err)
	}
	return n, nil
}
