package storage

import (
	"fmt"
	"strings"
	"time"

	"casework-hq/auditexport/pkg/audit"
)

// whereBuilder collects SQL conditions and arguments for a query. The
// placeholder func renders the n-th (1-based) bind parameter for the dialect.
type whereBuilder struct {
	placeholder func(n int) string
	timeArg     func(t time.Time) interface{}
	conditions  []string
	args        []interface{}
}

func (b *whereBuilder) add(cond string, values ...interface{}) {
	for _, v := range values {
		b.args = append(b.args, v)
		cond = strings.Replace(cond, "?", b.placeholder(len(b.args)), 1)
	}
	b.conditions = append(b.conditions, cond)
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(query *audit.Query, placeholder func(int) string, timeArg func(time.Time) interface{}) (string, []interface{}) {
	b := &whereBuilder{placeholder: placeholder, timeArg: timeArg}

	// Time range filter
	if query.StartTime != nil {
		b.add("audit_timestamp >= ?", timeArg(*query.StartTime))
	}
	if query.EndTime != nil {
		b.add("audit_timestamp <= ?", timeArg(*query.EndTime))
	}

	// Event kinds
	if len(query.Types) > 0 {
		marks := make([]string, len(query.Types))
		values := make([]interface{}, len(query.Types))
		for i, t := range query.Types {
			marks[i] = "?"
			values[i] = t
		}
		b.add("type IN ("+strings.Join(marks, ", ")+")", values...)
	}

	// Case filters
	if query.CaseTypeShortCode != "" {
		b.add(fmt.Sprintf("lower(substr(case_uuid, length(case_uuid) - %d)) = ?", audit.ShortCodeLength-1),
			strings.ToLower(query.CaseTypeShortCode))
	}
	if query.CaseUUID != "" {
		b.add("case_uuid = ?", query.CaseUUID)
	}

	if query.UserID != "" {
		b.add("user_id = ?", query.UserID)
	}
	if query.RaisingService != "" {
		b.add("raising_service = ?", query.RaisingService)
	}

	return strings.Join(b.conditions, " AND "), b.args
}

// orderAndPage renders ORDER BY, LIMIT and OFFSET. Records are returned in
// ascending timestamp order unless the query asks otherwise. unbounded is the
// dialect's LIMIT value for "no limit" when only an offset is set, or "" if the
// dialect accepts OFFSET on its own.
func orderAndPage(query *audit.Query, unbounded string) string {
	sortOrder := "ASC"
	if strings.EqualFold(query.SortOrder, "desc") {
		sortOrder = "DESC"
	}
	clause := fmt.Sprintf(" ORDER BY audit_timestamp %s, id %s", sortOrder, sortOrder)

	if query.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", query.Limit)
	}
	if query.Offset > 0 {
		if query.Limit <= 0 && unbounded != "" {
			clause += " LIMIT " + unbounded
		}
		clause += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return clause
}
