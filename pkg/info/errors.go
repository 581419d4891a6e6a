package info

import "fmt"

// DirectoryError is returned when a reference-data lookup fails.
type DirectoryError struct {
	Service    string // "info", "casework" or "file"
	Resource   string // Resource being fetched, e.g. "/users"
	StatusCode int    // HTTP status, 0 if the request never completed
	Cause      error
}

// Error implements the error interface.
func (e *DirectoryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s directory error [resource=%s, status=%d]: %v", e.Service, e.Resource, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s directory error [resource=%s]: %v", e.Service, e.Resource, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

// NewDirectoryError creates a new DirectoryError.
func NewDirectoryError(service, resource string, statusCode int, cause error) *DirectoryError {
	return &DirectoryError{
		Service:    service,
		Resource:   resource,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
