package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"casework-hq/auditexport/pkg/audit"
)

// validDataKey is written into every case data map by the casework service
// and is not a report column.
const validDataKey = "valid"

// payloadDecoder maps a parsed payload onto a report's fixed columns.
type payloadDecoder func(record *audit.AuditRecord, payload map[string]interface{}) []string

// DecodedRow is one audit record flattened for a report.
type DecodedRow struct {
	// Values is aligned with ReportRule.Header.
	Values []string

	// Data holds the case data fields keyed by field name. Only set for
	// dynamic reports.
	Data map[string]interface{}
}

// Decoder turns audit records into report rows.
type Decoder struct {
	rule     *ReportRule
	location *time.Location
}

// NewDecoder creates a decoder for a report rule. Timestamps are rendered in
// loc (UTC when nil).
func NewDecoder(rule *ReportRule, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{rule: rule, location: loc}
}

// Decode flattens a record. A payload that is not a JSON object yields a
// *PayloadDecodeError.
func (d *Decoder) Decode(record *audit.AuditRecord) (*DecodedRow, error) {
	payload, err := parsePayload(record.Payload)
	if err != nil {
		return nil, NewPayloadDecodeError(record.ID, record.Type, err)
	}

	values := make([]string, 0, len(StructuralColumns)+len(d.rule.Columns))
	values = append(values,
		record.Timestamp.In(d.location).Format(TimestampLayout),
		record.Type,
		record.UserID,
	)
	values = append(values, d.rule.decode(record, payload)...)

	row := &DecodedRow{Values: values}
	if d.rule.Dynamic {
		row.Data = caseData(payload)
	}
	return row, nil
}

func parsePayload(raw string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after payload")
	}
	return payload, nil
}

func decodeCaseData(record *audit.AuditRecord, payload map[string]interface{}) []string {
	return []string{
		firstNonEmpty(stringField(payload, "uuid"), record.CaseUUID),
		stringField(payload, "reference"),
		stringField(payload, "type"),
		stringField(payload, "caseDeadline"),
		stringField(payload, "primaryCorrespondent"),
		stringField(payload, "primaryTopic"),
	}
}

func decodeTopic(record *audit.AuditRecord, payload map[string]interface{}) []string {
	return []string{
		record.CaseUUID,
		stringField(payload, "topicUuid"),
		stringField(payload, "topicName"),
	}
}

func decodeCorrespondent(record *audit.AuditRecord, payload map[string]interface{}) []string {
	address := objectField(payload, "address")
	return []string{
		firstNonEmpty(record.CaseUUID, stringField(payload, "caseUUID")),
		stringField(payload, "uuid"),
		stringField(payload, "fullname"),
		stringField(address, "address1"),
		stringField(address, "address2"),
		stringField(address, "address3"),
		stringField(address, "country"),
		stringField(address, "postcode"),
		stringField(payload, "telephone"),
		stringField(payload, "email"),
		stringField(payload, "reference"),
	}
}

func decodeAllocation(record *audit.AuditRecord, payload map[string]interface{}) []string {
	return []string{
		record.CaseUUID,
		stringField(payload, "stage"),
		stringField(payload, "teamUUID"),
	}
}

// caseData copies the nested data map, dropping the valid flag.
func caseData(payload map[string]interface{}) map[string]interface{} {
	data := objectField(payload, "data")
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == validDataKey {
			continue
		}
		out[k] = v
	}
	return out
}

func stringField(obj map[string]interface{}, key string) string {
	return FormatValue(obj[key])
}

func objectField(obj map[string]interface{}, key string) map[string]interface{} {
	if nested, ok := obj[key].(map[string]interface{}); ok {
		return nested
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FormatValue renders a decoded JSON value as a CSV cell. Null and missing
// values become the empty string; strings are written verbatim.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}, []interface{}:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimRight(buf.String(), "\n")
	default:
		return fmt.Sprint(val)
	}
}
