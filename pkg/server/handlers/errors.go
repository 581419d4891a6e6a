package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"casework-hq/auditexport/pkg/export"
	"casework-hq/auditexport/pkg/info"
	"casework-hq/auditexport/pkg/security/auth"
	"casework-hq/auditexport/pkg/telemetry/logging"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeUnknownAdapter   = "unknown_adapter_type"
	CodeInvalidCaseType  = "invalid_case_type"
	CodeUpstreamFailure  = "upstream_failure"
	CodeTimeout          = "timeout"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal_error"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
)

// ParamError reports a missing or malformed query parameter.
type ParamError struct {
	Param   string
	Message string
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return "parameter " + e.Param + ": " + e.Message
}

// classify maps an error raised before output started to a status code, an
// error code and a client-safe message.
func classify(err error) (int, string, string) {
	var (
		paramErr   *ParamError
		adapterErr *export.UnknownAdapterTypeError
		ctErr      *export.InvalidCaseTypeError
		dirErr     *info.DirectoryError
	)

	switch {
	case errors.Is(err, auth.ErrMissingKey), errors.Is(err, auth.ErrInvalidKey):
		return http.StatusUnauthorized, CodeUnauthorized, err.Error()
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, CodeForbidden, err.Error()
	case errors.As(err, &paramErr), export.IsRequestError(err):
		return http.StatusBadRequest, CodeInvalidRequest, err.Error()
	case errors.As(err, &adapterErr):
		return http.StatusUnprocessableEntity, CodeUnknownAdapter, err.Error()
	case errors.As(err, &ctErr):
		return http.StatusUnprocessableEntity, CodeInvalidCaseType, err.Error()
	case errors.As(err, &dirErr):
		return http.StatusBadGateway, CodeUpstreamFailure, "reference data unavailable: " + dirErr.Service
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout, "the export did not start in time"
	default:
		return http.StatusInternalServerError, CodeInternal, "an internal error occurred"
	}
}

// WriteError writes err as a JSON error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="auditexport"`)
	}
	writeJSONError(w, r, status, code, message)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: logging.GetRequestID(r.Context()),
	})
}
