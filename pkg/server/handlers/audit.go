package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"casework-hq/auditexport/pkg/audit"
	"casework-hq/auditexport/pkg/audit/recorder"
)

// MaxAuditBodyBytes bounds a POST /audit body.
const MaxAuditBodyBytes = 16 << 20

// ContentTypeNDJSON selects batch ingestion, one command per line.
const ContentTypeNDJSON = "application/x-ndjson"

// AuditRecorder stores audit commands.
type AuditRecorder interface {
	Record(ctx context.Context, cmd *recorder.CreateAudit) (*audit.AuditRecord, error)
}

// IngestObserver is told about every command the handler processes.
type IngestObserver interface {
	RecordIngest(event string, err error)
}

// AuditHandler accepts audit commands.
//
// A single JSON object is answered with 201 and the new record's ID, or 400
// when the command is invalid. An application/x-ndjson body is a batch:
// invalid commands are counted and reported per line while the rest are
// stored, and the answer is 200 with the tally. A line that is not JSON
// stops the batch with 400; commands before it are kept.
type AuditHandler struct {
	recorder AuditRecorder
	observer IngestObserver
	logger   *slog.Logger
}

// NewAuditHandler creates an audit handler. observer may be nil.
func NewAuditHandler(rec AuditRecorder, observer IngestObserver) *AuditHandler {
	return &AuditHandler{
		recorder: rec,
		observer: observer,
		logger:   slog.Default().With("component", "server.audit"),
	}
}

// RecordedResponse answers a single command.
type RecordedResponse struct {
	ID string `json:"id"`
}

// LineError is a rejected command in a batch.
type LineError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// BatchResponse answers a batch.
type BatchResponse struct {
	Accepted int         `json:"accepted"`
	Rejected int         `json:"rejected"`
	Errors   []LineError `json:"errors,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAuditBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == ContentTypeNDJSON {
		h.serveBatch(w, r)
		return
	}

	var cmd recorder.CreateAudit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		WriteError(w, r, &ParamError{Param: "body", Message: err.Error()})
		return
	}

	record, err := h.record(r.Context(), &cmd)
	if err != nil {
		h.writeRecordError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordedResponse{ID: record.ID})
}

func (h *AuditHandler) serveBatch(w http.ResponseWriter, r *http.Request) {
	var resp BatchResponse
	var fatal error

	err := recorder.DecodeCommands(r.Body, func(line int, cmd *recorder.CreateAudit) error {
		if _, err := h.record(r.Context(), cmd); err != nil {
			if !errors.Is(err, recorder.ErrInvalidCommand) {
				fatal = err
				return err
			}
			resp.Rejected++
			resp.Errors = append(resp.Errors, LineError{Line: line, Error: err.Error()})
			return nil
		}
		resp.Accepted++
		return nil
	})

	switch {
	case fatal != nil:
		h.writeRecordError(w, r, fatal)
	case err != nil:
		h.logger.WarnContext(r.Context(), "audit batch stopped", "accepted", resp.Accepted, "error", err)
		WriteError(w, r, &ParamError{Param: "body", Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AuditHandler) record(ctx context.Context, cmd *recorder.CreateAudit) (*audit.AuditRecord, error) {
	record, err := h.recorder.Record(ctx, cmd)
	if h.observer != nil {
		h.observer.RecordIngest(cmd.Type, err)
	}
	return record, err
}

func (h *AuditHandler) writeRecordError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, recorder.ErrInvalidCommand) {
		writeJSONError(w, r, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "failed to record audit command", "error", err)
	writeJSONError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "the audit store is unavailable")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
