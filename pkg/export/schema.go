package export

import (
	"context"
	"fmt"

	"casework-hq/auditexport/pkg/info"
)

// Schema is the column layout of one export run: the structural columns,
// the report's fixed columns, then the visible dynamic fields.
type Schema struct {
	Rule   *ReportRule
	Fields []info.FieldDefinition
}

// ResolveSchema builds the schema for a report. Dynamic reports fetch the
// case type's field definitions exactly once.
func ResolveSchema(ctx context.Context, rule *ReportRule, caseType info.CaseType, directory InfoService) (*Schema, error) {
	schema := &Schema{Rule: rule}
	if !rule.Dynamic {
		return schema, nil
	}

	fields, err := directory.ExportFields(ctx, caseType.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch export fields for %s: %w", caseType.Type, err)
	}
	schema.Fields = fields
	return schema, nil
}

// Header returns the full ordered header.
func (s *Schema) Header() []string {
	fixed := s.Rule.Header()
	dynamic := Headers(s.Fields)

	header := make([]string, 0, len(fixed)+len(dynamic))
	header = append(header, fixed...)
	return append(header, dynamic...)
}
