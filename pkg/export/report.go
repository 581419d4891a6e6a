package export

import (
	"strings"

	"casework-hq/auditexport/pkg/audit"
)

// ReportType selects one of the fixed export reports.
type ReportType string

const (
	// ReportCaseData exports case snapshots with the case type's dynamic fields.
	ReportCaseData ReportType = "CASE_DATA"
	// ReportTopics exports topics added to and removed from cases.
	ReportTopics ReportType = "TOPICS"
	// ReportCorrespondents exports correspondents added to and removed from cases.
	ReportCorrespondents ReportType = "CORRESPONDENTS"
	// ReportAllocations exports stage allocations to teams.
	ReportAllocations ReportType = "ALLOCATIONS"
)

// Column names shared by every report, sourced from the audit record itself.
const (
	ColumnTimestamp = "timestamp"
	ColumnEvent     = "event"
	ColumnUserID    = "userId"
)

// StructuralColumns are the leading columns of every report.
var StructuralColumns = []string{ColumnTimestamp, ColumnEvent, ColumnUserID}

// ReportRule is the static description of one report type.
type ReportRule struct {
	Type ReportType

	// Events is the set of event kinds the report reads.
	Events []string

	// Columns are the report's fixed columns, following StructuralColumns.
	Columns []string

	// Dynamic is set when the case type's export fields are appended.
	Dynamic bool

	decode payloadDecoder
}

// Header returns the fixed part of the report header.
func (r *ReportRule) Header() []string {
	header := make([]string, 0, len(StructuralColumns)+len(r.Columns))
	header = append(header, StructuralColumns...)
	return append(header, r.Columns...)
}

var rules = map[ReportType]*ReportRule{
	ReportCaseData: {
		Type:    ReportCaseData,
		Events:  []string{audit.EventCaseCreated, audit.EventCaseUpdated},
		Columns: []string{"caseUuid", "reference", "caseType", "deadline", "primaryCorrespondent", "primaryTopic"},
		Dynamic: true,
		decode:  decodeCaseData,
	},
	ReportTopics: {
		Type:    ReportTopics,
		Events:  []string{audit.EventCaseTopicCreated, audit.EventCaseTopicDeleted},
		Columns: []string{"caseUuid", "topicUuid", "topic"},
		decode:  decodeTopic,
	},
	ReportCorrespondents: {
		Type:   ReportCorrespondents,
		Events: []string{audit.EventCorrespondentCreated, audit.EventCorrespondentDeleted},
		Columns: []string{
			"caseUuid", "correspondentUuid", "fullname",
			"address1", "address2", "address3", "country", "postcode",
			"telephone", "email", "reference",
		},
		decode: decodeCorrespondent,
	},
	ReportAllocations: {
		Type:    ReportAllocations,
		Events:  []string{audit.EventStageAllocatedToTeam, audit.EventStageCreated},
		Columns: []string{"caseUuid", "stage", "teamUuid"},
		decode:  decodeAllocation,
	},
}

// ReportTypes lists the supported report types in a stable order.
func ReportTypes() []ReportType {
	return []ReportType{ReportCaseData, ReportTopics, ReportCorrespondents, ReportAllocations}
}

// ParseReportType parses a report type selector. Matching ignores case.
func ParseReportType(s string) (ReportType, error) {
	t := ReportType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := rules[t]; !ok {
		return "", NewUnknownReportTypeError(s)
	}
	return t, nil
}

// RuleFor returns the rule for a report type.
func RuleFor(t ReportType) (*ReportRule, error) {
	rule, ok := rules[t]
	if !ok {
		return nil, NewUnknownReportTypeError(string(t))
	}
	return rule, nil
}
