package export

import (
	"errors"
	"fmt"
	"time"
)

// InvalidRangeError is returned when the requested from date is after the
// through date.
type InvalidRangeError struct {
	From    time.Time
	Through time.Time
}

// Error implements the error interface.
func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid export range: from %s is after through %s",
		e.From.Format(DateLayout), e.Through.Format(DateLayout))
}

// NewInvalidRangeError creates a new InvalidRangeError.
func NewInvalidRangeError(from, through time.Time) *InvalidRangeError {
	return &InvalidRangeError{From: from, Through: through}
}

// UnknownCaseTypeError is returned when the case type code is not known to
// the info service.
type UnknownCaseTypeError struct {
	Code string
}

// Error implements the error interface.
func (e *UnknownCaseTypeError) Error() string {
	return fmt.Sprintf("unknown case type: %q", e.Code)
}

// NewUnknownCaseTypeError creates a new UnknownCaseTypeError.
func NewUnknownCaseTypeError(code string) *UnknownCaseTypeError {
	return &UnknownCaseTypeError{Code: code}
}

// InvalidCaseTypeError is returned when the directory entry for a case type
// cannot be used to select its records, such as an entry without a short
// code.
type InvalidCaseTypeError struct {
	Code      string
	ShortCode string
	Reason    string
}

// Error implements the error interface.
func (e *InvalidCaseTypeError) Error() string {
	return fmt.Sprintf("case type %q has unusable short code %q: %s", e.Code, e.ShortCode, e.Reason)
}

// NewInvalidCaseTypeError creates a new InvalidCaseTypeError.
func NewInvalidCaseTypeError(code, shortCode, reason string) *InvalidCaseTypeError {
	return &InvalidCaseTypeError{Code: code, ShortCode: shortCode, Reason: reason}
}

// UnknownReportTypeError is returned for a report type outside the fixed set.
type UnknownReportTypeError struct {
	ReportType string
}

// Error implements the error interface.
func (e *UnknownReportTypeError) Error() string {
	return fmt.Sprintf("unknown report type: %q", e.ReportType)
}

// NewUnknownReportTypeError creates a new UnknownReportTypeError.
func NewUnknownReportTypeError(reportType string) *UnknownReportTypeError {
	return &UnknownReportTypeError{ReportType: reportType}
}

// UnknownAdapterTypeError is returned when a field definition references an
// adapter tag the registry cannot resolve.
type UnknownAdapterTypeError struct {
	Field string // Field definition name
	Tag   string // Unresolved adapter tag
}

// Error implements the error interface.
func (e *UnknownAdapterTypeError) Error() string {
	return fmt.Sprintf("cannot convert data for adapter type %q (field %q)", e.Tag, e.Field)
}

// NewUnknownAdapterTypeError creates a new UnknownAdapterTypeError.
func NewUnknownAdapterTypeError(field, tag string) *UnknownAdapterTypeError {
	return &UnknownAdapterTypeError{Field: field, Tag: tag}
}

// PayloadDecodeError is reported when an audit payload is not a JSON object.
// The record is skipped.
type PayloadDecodeError struct {
	RecordID string
	Event    string
	Cause    error
}

// Error implements the error interface.
func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("payload decode error [record=%s, event=%s]: %v", e.RecordID, e.Event, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PayloadDecodeError) Unwrap() error {
	return e.Cause
}

// NewPayloadDecodeError creates a new PayloadDecodeError.
func NewPayloadDecodeError(recordID, event string, cause error) *PayloadDecodeError {
	return &PayloadDecodeError{RecordID: recordID, Event: event, Cause: cause}
}

// AdapterConversionError is reported when one adapter step fails. The value
// from before that step is kept.
type AdapterConversionError struct {
	Field string
	Tag   string
	Value interface{}
	Cause error
}

// Error implements the error interface.
func (e *AdapterConversionError) Error() string {
	return fmt.Sprintf("unable to convert value %v [field=%s, adapter=%s]: %v", e.Value, e.Field, e.Tag, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *AdapterConversionError) Unwrap() error {
	return e.Cause
}

// NewAdapterConversionError creates a new AdapterConversionError.
func NewAdapterConversionError(field, tag string, value interface{}, cause error) *AdapterConversionError {
	return &AdapterConversionError{Field: field, Tag: tag, Value: value, Cause: cause}
}

// IsRequestError reports whether err was caused by the export request itself
// rather than by a backend or the output sink. Request errors are raised
// before any output is written.
func IsRequestError(err error) bool {
	var (
		rangeErr      *InvalidRangeError
		caseTypeErr   *UnknownCaseTypeError
		reportTypeErr *UnknownReportTypeError
	)
	return errors.As(err, &rangeErr) || errors.As(err, &caseTypeErr) || errors.As(err, &reportTypeErr)
}
