package query

import (
	"fmt"
	"regexp"
	"strings"

	"casework-hq/auditexport/pkg/audit"
)

// MaxLimit is the maximum page size. A zero limit means unbounded and is what
// the export pipeline uses.
const MaxLimit = 10000

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

var (
	eventKindPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	shortCodePattern = regexp.MustCompile(`^[0-9a-fA-F]{2}$`)
)

// Validate validates a query and returns an error if any parameters are invalid.
func Validate(q *audit.Query) error {
	if q.Limit < 0 {
		return audit.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return audit.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return audit.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortOrder != "" && !ValidSortOrders[strings.ToLower(q.SortOrder)] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return audit.NewQueryError(q, fmt.Errorf("start_time must not be after end_time"))
	}

	for _, kind := range q.Types {
		if !eventKindPattern.MatchString(kind) {
			return audit.NewQueryError(q, fmt.Errorf("invalid event kind: %q", kind))
		}
	}

	if q.CaseTypeShortCode != "" && !shortCodePattern.MatchString(q.CaseTypeShortCode) {
		return audit.NewQueryError(q, fmt.Errorf("invalid case type short code: %q (must be %d hex characters)",
			q.CaseTypeShortCode, audit.ShortCodeLength))
	}

	return nil
}

// ApplyDefaults applies default values to a query.
func ApplyDefaults(q *audit.Query) {
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
}
