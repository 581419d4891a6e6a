package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"casework-hq/auditexport/pkg/audit"
)

// minCaseUUID and dcuCaseUUID end in the MIN ("a1") and DTEN ("a2") short codes.
const (
	minCaseUUID   = "3e5cf44f-e86a-4b21-891a-018e2343cda1"
	otherMinUUID  = "7b1e2a40-5c4b-4f0a-9d3e-0a1b2c3d4ea1"
	dtenCaseUUID  = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2ba2"
	upperMinUUID  = "0D1C2B3A-4F5E-4D6C-8B7A-69584736A5A1"
	testNamespace = "local"
)

// createTempDB creates a temporary SQLite database for testing.
func createTempDB(t *testing.T, driver string) *SQLiteStorage {
	t.Helper()

	config := &SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		Driver:       driver,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}

	storage, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

// backends returns every storage implementation exercised by the shared tests.
func backends(t *testing.T) map[string]func(t *testing.T) audit.Storage {
	return map[string]func(t *testing.T) audit.Storage{
		"memory":         func(t *testing.T) audit.Storage { return NewMemoryStorage() },
		"sqlite-cgo":     func(t *testing.T) audit.Storage { return createTempDB(t, DriverCGO) },
		"sqlite-pure-go": func(t *testing.T) audit.Storage { return createTempDB(t, DriverPureGo) },
	}
}

func record(id, caseUUID, kind string, ts time.Time) *audit.AuditRecord {
	return &audit.AuditRecord{
		ID:             id,
		CaseUUID:       caseUUID,
		CorrelationID:  "corr-" + id,
		RaisingService: "casework",
		Payload:        `{"stage":"DCU_MIN_MARKUP"}`,
		Namespace:      testNamespace,
		Timestamp:      ts,
		Type:           kind,
		UserID:         "user-1",
	}
}

func seed(t *testing.T, s audit.Storage, records ...*audit.AuditRecord) {
	t.Helper()
	for _, r := range records {
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store(%s) failed: %v", r.ID, err)
		}
	}
}

func ids(records []*audit.AuditRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStorage_StoreAndQuery(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			ctx := context.Background()

			ts := time.Date(2019, 4, 23, 12, 58, 4, 123456000, time.UTC)
			want := record("r1", minCaseUUID, audit.EventCaseCreated, ts)
			seed(t, s, want)

			got, err := s.Query(ctx, &audit.Query{})
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(got))
			}

			r := got[0]
			if r.ID != want.ID || r.CaseUUID != want.CaseUUID || r.Type != want.Type {
				t.Errorf("Record mismatch: got %+v", r)
			}
			if r.CorrelationID != want.CorrelationID || r.RaisingService != want.RaisingService {
				t.Errorf("Record metadata mismatch: got %+v", r)
			}
			if r.Payload != want.Payload {
				t.Errorf("Payload = %q, want %q", r.Payload, want.Payload)
			}
			if r.Namespace != testNamespace || r.UserID != "user-1" {
				t.Errorf("Namespace/UserID mismatch: got %+v", r)
			}
			if !r.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", r.Timestamp, ts)
			}
		})
	}
}

func TestStorage_QueryWithTimeRange(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			ctx := context.Background()

			seed(t, s,
				record("before", minCaseUUID, audit.EventCaseCreated, time.Date(2018, 12, 31, 23, 59, 59, 0, time.UTC)),
				record("start", minCaseUUID, audit.EventCaseCreated, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)),
				record("inside", minCaseUUID, audit.EventCaseCreated, time.Date(2019, 4, 23, 12, 58, 4, 0, time.UTC)),
				record("end", minCaseUUID, audit.EventCaseCreated, time.Date(2019, 6, 1, 23, 59, 59, 999999000, time.UTC)),
				record("after", minCaseUUID, audit.EventCaseCreated, time.Date(2019, 6, 2, 0, 0, 1, 0, time.UTC)),
			)

			start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(2019, 6, 1, 23, 59, 59, 999999000, time.UTC)

			got, err := s.Query(ctx, &audit.Query{StartTime: &start, EndTime: &end})
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}

			want := []string{"start", "inside", "end"}
			if !equalIDs(ids(got), want) {
				t.Errorf("Query() = %v, want %v", ids(got), want)
			}
		})
	}
}

func TestStorage_QueryWithFilters(t *testing.T) {
	ts := time.Date(2019, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query *audit.Query
		want  []string
	}{
		{
			name:  "event kinds",
			query: &audit.Query{Types: []string{audit.EventStageAllocatedToTeam, audit.EventStageCreated}},
			want:  []string{"alloc-1", "alloc-2", "alloc-dten"},
		},
		{
			name:  "case type short code",
			query: &audit.Query{CaseTypeShortCode: "a1"},
			want:  []string{"alloc-1", "alloc-2", "created", "topic", "upper-case"},
		},
		{
			name:  "short code matches case-insensitively",
			query: &audit.Query{CaseTypeShortCode: "A1", Types: []string{audit.EventCaseTopicCreated}},
			want:  []string{"topic", "upper-case"},
		},
		{
			name: "event kinds and short code",
			query: &audit.Query{
				Types:             []string{audit.EventStageAllocatedToTeam, audit.EventStageCreated},
				CaseTypeShortCode: "a1",
			},
			want: []string{"alloc-1", "alloc-2"},
		},
		{
			name:  "single case",
			query: &audit.Query{CaseUUID: otherMinUUID},
			want:  []string{"alloc-2"},
		},
		{
			name:  "no case uuid never matches short code",
			query: &audit.Query{CaseTypeShortCode: "a2", Types: []string{"LOGIN"}},
			want:  []string{},
		},
	}

	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			seed(t, s,
				record("alloc-1", minCaseUUID, audit.EventStageAllocatedToTeam, ts),
				record("alloc-2", otherMinUUID, audit.EventStageCreated, ts.Add(time.Minute)),
				record("alloc-dten", dtenCaseUUID, audit.EventStageAllocatedToTeam, ts.Add(2*time.Minute)),
				record("created", minCaseUUID, audit.EventCaseCreated, ts.Add(3*time.Minute)),
				record("topic", minCaseUUID, audit.EventCaseTopicCreated, ts.Add(4*time.Minute)),
				record("login", "", "LOGIN", ts.Add(5*time.Minute)),
				record("upper-case", upperMinUUID, audit.EventCaseTopicCreated, ts.Add(6*time.Minute)),
			)

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(context.Background(), tt.query)
					if err != nil {
						t.Fatalf("Query() failed: %v", err)
					}
					if !equalIDs(ids(got), tt.want) {
						t.Errorf("Query() = %v, want %v", ids(got), tt.want)
					}
				})
			}
		})
	}
}

func TestStorage_QueryWithPaginationAndSorting(t *testing.T) {
	base := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)

	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			seed(t, s,
				record("r3", minCaseUUID, audit.EventCaseUpdated, base.Add(3*time.Hour)),
				record("r1", minCaseUUID, audit.EventCaseUpdated, base.Add(1*time.Hour)),
				record("r2", minCaseUUID, audit.EventCaseUpdated, base.Add(2*time.Hour)),
				record("r4", minCaseUUID, audit.EventCaseUpdated, base.Add(4*time.Hour)),
			)
			ctx := context.Background()

			got, err := s.Query(ctx, &audit.Query{Limit: 2, Offset: 1})
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if want := []string{"r2", "r3"}; !equalIDs(ids(got), want) {
				t.Errorf("paged Query() = %v, want %v", ids(got), want)
			}

			got, err = s.Query(ctx, &audit.Query{Offset: 2})
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if want := []string{"r3", "r4"}; !equalIDs(ids(got), want) {
				t.Errorf("offset-only Query() = %v, want %v", ids(got), want)
			}

			got, err = s.Query(ctx, &audit.Query{SortOrder: "desc", Limit: 1})
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if want := []string{"r4"}; !equalIDs(ids(got), want) {
				t.Errorf("desc Query() = %v, want %v", ids(got), want)
			}
		})
	}
}

func TestStorage_CountAndDelete(t *testing.T) {
	base := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)

	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			ctx := context.Background()
			seed(t, s,
				record("old-1", minCaseUUID, audit.EventCaseCreated, base.AddDate(0, -2, 0)),
				record("old-2", dtenCaseUUID, audit.EventCaseCreated, base.AddDate(0, -1, 0)),
				record("new-1", minCaseUUID, audit.EventCaseCreated, base),
			)

			count, err := s.Count(ctx, &audit.Query{CaseTypeShortCode: "a1"})
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if count != 2 {
				t.Errorf("Count() = %d, want 2", count)
			}

			cutoff := base.AddDate(0, 0, -1)
			deleted, err := s.Delete(ctx, &audit.Query{EndTime: &cutoff})
			if err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			if deleted != 2 {
				t.Errorf("Delete() = %d, want 2", deleted)
			}

			remaining, err := s.Count(ctx, &audit.Query{})
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if remaining != 1 {
				t.Errorf("remaining = %d, want 1", remaining)
			}
		})
	}
}

func TestStorage_QueryStream(t *testing.T) {
	base := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)

	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			for i := 0; i < 250; i++ {
				seed(t, s, record(
					fmt.Sprintf("r%03d", i), minCaseUUID, audit.EventCaseUpdated,
					base.Add(time.Duration(i)*time.Second),
				))
			}

			recordsCh, errCh, err := s.QueryStream(context.Background(), &audit.Query{CaseTypeShortCode: "a1"})
			if err != nil {
				t.Fatalf("QueryStream() failed: %v", err)
			}

			var last time.Time
			count := 0
			for r := range recordsCh {
				if r.Timestamp.Before(last) {
					t.Fatalf("records out of order: %v before %v", r.Timestamp, last)
				}
				last = r.Timestamp
				count++
			}
			if err := <-errCh; err != nil {
				t.Fatalf("stream error: %v", err)
			}
			if count != 250 {
				t.Errorf("streamed %d records, want 250", count)
			}
		})
	}
}

func TestStorage_QueryStreamCancel(t *testing.T) {
	base := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)

	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			for i := 0; i < 300; i++ {
				seed(t, s, record(
					fmt.Sprintf("r%03d", i), minCaseUUID, audit.EventCaseUpdated,
					base.Add(time.Duration(i)*time.Second),
				))
			}

			ctx, cancel := context.WithCancel(context.Background())
			recordsCh, errCh, err := s.QueryStream(ctx, &audit.Query{})
			if err != nil {
				t.Fatalf("QueryStream() failed: %v", err)
			}

			<-recordsCh
			cancel()

			// Drain until the producer notices cancellation and closes.
			for range recordsCh {
			}
			if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected stream error: %v", err)
			}
		})
	}
}

func TestStorage_ConcurrentWrites(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)
			base := time.Now().UTC()

			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					r := record(fmt.Sprintf("c%02d", i), minCaseUUID, audit.EventCaseUpdated, base.Add(time.Duration(i)))
					if err := s.Store(context.Background(), r); err != nil {
						errs <- err
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				t.Errorf("concurrent Store() failed: %v", err)
			}

			count, err := s.Count(context.Background(), &audit.Query{})
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if count != 20 {
				t.Errorf("Count() = %d, want 20", count)
			}
		})
	}
}

func TestSQLiteStorage_UnsupportedDriver(t *testing.T) {
	_, err := NewSQLiteStorage(&SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Driver: "postgres",
	})
	if err == nil {
		t.Fatal("Expected error for unsupported driver")
	}

	var storageErr *audit.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected *audit.StorageError, got %T", err)
	}
	if storageErr.Operation != "open" {
		t.Errorf("Operation = %q, want open", storageErr.Operation)
	}
}

func TestSQLiteStorage_Ping(t *testing.T) {
	s := createTempDB(t, DriverCGO)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestSQLiteStorage_DuplicateID(t *testing.T) {
	s := createTempDB(t, DriverCGO)
	r := record("dup", minCaseUUID, audit.EventCaseCreated, time.Now())
	seed(t, s, r)

	err := s.Store(context.Background(), r)
	var storageErr *audit.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected *audit.StorageError for duplicate id, got %v", err)
	}
}
