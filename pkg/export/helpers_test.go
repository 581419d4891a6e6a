package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"casework-hq/auditexport/pkg/audit"
	"casework-hq/auditexport/pkg/audit/storage"
	"casework-hq/auditexport/pkg/info"
)

const (
	minShortCode = "a1"
	dcuShortCode = "a2"

	caseOne   = "3fa0c2b8-1111-4a2b-9c3d-0000000001a1"
	caseTwo   = "3fa0c2b8-2222-4a2b-9c3d-0000000002a1"
	caseOther = "3fa0c2b8-3333-4a2b-9c3d-0000000003a2"

	userID = "c1a9f2d4-5b6e-4f70-8a91-b2c3d4e5f601"
	teamID = "0a1b2c3d-4e5f-4061-8273-94a5b6c7d8e9"
)

// fakeInfo is an in-memory InfoService that counts calls.
type fakeInfo struct {
	caseTypes []info.CaseType
	fields    map[string][]info.FieldDefinition
	users     []info.User
	teams     []info.Team
	err       error

	fieldCalls int
	userCalls  int
	teamCalls  int
}

func (f *fakeInfo) CaseTypes(ctx context.Context) ([]info.CaseType, error) {
	return f.caseTypes, f.err
}

func (f *fakeInfo) ExportFields(ctx context.Context, code string) ([]info.FieldDefinition, error) {
	f.fieldCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.fields[code], nil
}

func (f *fakeInfo) Users(ctx context.Context) ([]info.User, error) {
	f.userCalls++
	return f.users, f.err
}

func (f *fakeInfo) Teams(ctx context.Context) ([]info.Team, error) {
	f.teamCalls++
	return f.teams, f.err
}

type fakeCasework struct {
	topics []info.Topic
	calls  int
}

func (f *fakeCasework) CaseTopics(ctx context.Context) ([]info.Topic, error) {
	f.calls++
	return f.topics, nil
}

func newFakeInfo() *fakeInfo {
	return &fakeInfo{
		caseTypes: []info.CaseType{
			{DisplayName: "Ministerial", ShortCode: minShortCode, Type: "MIN"},
			{DisplayName: "DCU Treat Official", ShortCode: dcuShortCode, Type: "TRO"},
		},
		fields: map[string][]info.FieldDefinition{
			"MIN": {
				{Name: "CopyNumberTen", DisplayName: "Copy to No. 10"},
				{Name: "Owner", DisplayName: "Case owner", Adapters: []string{AdapterUsername}},
				{Name: "Team", DisplayName: "Owning team", Adapters: []string{AdapterTeamName}},
				{Name: "Secret", DisplayName: "Internal notes", Adapters: []string{info.HiddenAdapter}},
			},
		},
		users: []info.User{
			{ID: userID, Username: "jbloggs", FirstName: "Joe", LastName: "Bloggs", Email: "joe.bloggs@example.gov.uk"},
		},
		teams: []info.Team{
			{ID: teamID, Name: "Private Office", Unit: &info.Unit{ID: "u1", Name: "Home Office"}},
		},
	}
}

func newFakeCasework() *fakeCasework {
	return &fakeCasework{topics: []info.Topic{{ID: "t1", Name: "Animal welfare"}}}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		t.Fatalf("bad test time %q: %v", s, err)
	}
	return ts
}

func newRecord(caseUUID, event, payload string, ts time.Time) *audit.AuditRecord {
	return &audit.AuditRecord{
		ID:             uuid.New().String(),
		CaseUUID:       caseUUID,
		CorrelationID:  "corr-1",
		RaisingService: "casework",
		Payload:        payload,
		Namespace:      "test",
		Timestamp:      ts,
		Type:           event,
		UserID:         userID,
	}
}

func newStore(t *testing.T, records ...*audit.AuditRecord) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage()
	for _, r := range records {
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatalf("failed to store record: %v", err)
		}
	}
	return store
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	skipped  []*PayloadDecodeError
	failures []*AdapterConversionError
	results  []*Result
	errs     []error
}

func (o *recordingObserver) RecordSkipped(_ ReportType, err *PayloadDecodeError) {
	o.skipped = append(o.skipped, err)
}

func (o *recordingObserver) AdapterFailed(_ ReportType, err *AdapterConversionError) {
	o.failures = append(o.failures, err)
}

func (o *recordingObserver) ExportCompleted(result *Result, err error) {
	o.results = append(o.results, result)
	o.errs = append(o.errs, err)
}

// failingWriter fails every write after the first n bytes.
type failingWriter struct {
	limit   int
	written int
}

var errSinkClosed = errors.New("sink closed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		return 0, errSinkClosed
	}
	w.written += len(p)
	return len(p), nil
}
