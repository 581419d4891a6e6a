package audit

import (
	"context"
	"time"
)

// Event kinds raised by the casework services. Only the kinds consumed by the
// export reports are listed; the store accepts any kind.
const (
	EventCaseCreated          = "CASE_CREATED"
	EventCaseUpdated          = "CASE_UPDATED"
	EventCaseTopicCreated     = "CASE_TOPIC_CREATED"
	EventCaseTopicDeleted     = "CASE_TOPIC_DELETED"
	EventCorrespondentCreated = "CORRESPONDENT_CREATED"
	EventCorrespondentDeleted = "CORRESPONDENT_DELETED"
	EventStageAllocatedToTeam = "STAGE_ALLOCATED_TO_TEAM"
	EventStageCreated         = "STAGE_CREATED"
)

// ShortCodeLength is the number of trailing characters of a case UUID that
// encode the case type short code (e.g. "a1" for MIN cases).
const ShortCodeLength = 2

// AuditRecord is a single immutable audit fact captured from a casework service.
type AuditRecord struct {
	ID             string    `json:"id"`              // UUID v4
	CaseUUID       string    `json:"case_uuid"`       // Case the event belongs to (may be empty)
	CorrelationID  string    `json:"correlation_id"`  // Request correlation identifier
	RaisingService string    `json:"raising_service"` // Service that raised the event
	Payload        string    `json:"audit_payload"`   // Raw JSON payload
	Namespace      string    `json:"namespace"`       // Environment tag
	Timestamp      time.Time `json:"audit_timestamp"` // When the event happened
	Type           string    `json:"type"`            // Event kind
	UserID         string    `json:"user_id"`         // Acting user
}

// CaseTypeShortCode returns the case type short code embedded in the record's
// case UUID, or "" if the record has no case.
func (r *AuditRecord) CaseTypeShortCode() string {
	return ShortCode(r.CaseUUID)
}

// ShortCode extracts the case type short code from a case UUID.
func ShortCode(caseUUID string) string {
	if len(caseUUID) < ShortCodeLength {
		return ""
	}
	return caseUUID[len(caseUUID)-ShortCodeLength:]
}

// Query defines filter parameters for querying audit records.
type Query struct {
	// Time range
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	Types             []string `json:"types,omitempty"`                // Event kinds (any of)
	CaseTypeShortCode string   `json:"case_type_short_code,omitempty"` // Case UUID suffix
	CaseUUID          string   `json:"case_uuid,omitempty"`            // Single case
	UserID            string   `json:"user_id,omitempty"`              // Acting user
	RaisingService    string   `json:"raising_service,omitempty"`      // Raising service

	// Pagination. Limit 0 means unbounded.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc" (by timestamp)
}

// Storage defines the interface for audit record storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an audit record.
	Store(ctx context.Context, record *AuditRecord) error

	// Query retrieves audit records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*AuditRecord, error)

	// QueryStream returns a channel of audit records for memory-efficient streaming.
	//
	// Returns:
	//   - recordsCh: Channel of audit records in timestamp order
	//   - errCh: Channel for errors (buffered, max 1 error)
	//   - error: Immediate error (e.g., invalid query)
	//
	// Both channels are closed when the query completes, fails, or ctx is
	// cancelled. Callers that stop reading early must cancel ctx.
	QueryStream(ctx context.Context, query *Query) (<-chan *AuditRecord, <-chan error, error)

	// Count returns the number of audit records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes audit records matching the query filters and returns
	// the number of records deleted. Used for retention enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the storage backend.
	Close() error
}
