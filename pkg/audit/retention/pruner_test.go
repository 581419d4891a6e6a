package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"casework-hq/auditexport/pkg/audit"
	"casework-hq/auditexport/pkg/audit/storage"
)

var fixedNow = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestPruner(store audit.Storage, config *Config) *Pruner {
	p := NewPruner(store, config)
	p.now = func() time.Time { return fixedNow }
	return p
}

func storeAt(t *testing.T, store audit.Storage, id string, ts time.Time) {
	t.Helper()
	err := store.Store(context.Background(), &audit.AuditRecord{
		ID:             id,
		CaseUUID:       "3e5cf44f-e86a-4b21-891a-018e2343cda1",
		CorrelationID:  "corr-" + id,
		RaisingService: "casework",
		Namespace:      "local",
		Timestamp:      ts,
		Type:           audit.EventCaseUpdated,
		UserID:         "user-1",
	})
	if err != nil {
		t.Fatalf("failed to store record: %v", err)
	}
}

func TestPruner_PruneOldRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	for i := 0; i < 5; i++ {
		storeAt(t, store, fmt.Sprintf("old-%d", i), fixedNow.AddDate(0, 0, -100-i))
	}
	for i := 0; i < 3; i++ {
		storeAt(t, store, fmt.Sprintf("new-%d", i), fixedNow.AddDate(0, 0, -i))
	}

	pruner := newTestPruner(store, &Config{RetentionDays: 90})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}

	count, _ := store.Count(context.Background(), &audit.Query{})
	if count != 3 {
		t.Errorf("remaining = %d, want 3", count)
	}
}

func TestPruner_RetentionDisabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	storeAt(t, store, "ancient", fixedNow.AddDate(-10, 0, 0))

	pruner := newTestPruner(store, &Config{RetentionDays: 0, MaxRecords: 0})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestPruner_PruneByCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	for i := 0; i < 10; i++ {
		storeAt(t, store, fmt.Sprintf("r%02d", i), fixedNow.Add(time.Duration(i)*time.Minute))
	}

	pruner := newTestPruner(store, &Config{MaxRecords: 4})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 6 {
		t.Errorf("deleted = %d, want 6", deleted)
	}

	remaining, err := store.Query(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(remaining) != 4 || remaining[0].ID != "r06" {
		t.Errorf("expected newest 4 records starting at r06, got %d starting at %v", len(remaining), remaining)
	}
}

func TestPruner_BothAgeAndCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	for i := 0; i < 3; i++ {
		storeAt(t, store, fmt.Sprintf("old-%d", i), fixedNow.AddDate(0, 0, -200))
	}
	for i := 0; i < 6; i++ {
		storeAt(t, store, fmt.Sprintf("new-%d", i), fixedNow.Add(-time.Duration(6-i)*time.Hour))
	}

	pruner := newTestPruner(store, &Config{RetentionDays: 30, MaxRecords: 2})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
}

func TestPruner_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	storeAt(t, store, "old-1", fixedNow.AddDate(0, 0, -100))
	storeAt(t, store, "old-2", fixedNow.AddDate(0, 0, -120))
	storeAt(t, store, "new-1", fixedNow)

	archiveDir := filepath.Join(t.TempDir(), "archives")
	pruner := newTestPruner(store, &Config{
		RetentionDays:       90,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	files, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 archive file, got %d", len(files))
	}
	if !strings.HasPrefix(files[0].Name(), "audit-age-") || !strings.HasSuffix(files[0].Name(), ".jsonl") {
		t.Errorf("unexpected archive name %q", files[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(archiveDir, files[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("archived %d lines, want 2", len(lines))
	}
	if !strings.Contains(string(data), `"correlation_id":"corr-old-1"`) {
		t.Errorf("archive missing old-1: %s", data)
	}
}

func TestPruner_PruneByCountArchivesTiedRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	storeAt(t, store, "r0", fixedNow)
	storeAt(t, store, "r1", fixedNow.Add(time.Minute))
	storeAt(t, store, "tie-a", fixedNow.Add(2*time.Minute))
	storeAt(t, store, "tie-b", fixedNow.Add(2*time.Minute))
	storeAt(t, store, "r4", fixedNow.Add(3*time.Minute))

	archiveDir := filepath.Join(t.TempDir(), "archives")
	pruner := newTestPruner(store, &Config{
		MaxRecords:          2,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	// Three records are over the limit; the third shares its timestamp with
	// tie-b, so both go.
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}

	files, err := os.ReadDir(archiveDir)
	if err != nil || len(files) != 1 {
		t.Fatalf("expected 1 archive file, got %d (%v)", len(files), err)
	}
	data, err := os.ReadFile(filepath.Join(archiveDir, files[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if int64(len(lines)) != deleted {
		t.Errorf("archived %d records but deleted %d", len(lines), deleted)
	}
	for _, id := range []string{"r0", "r1", "tie-a", "tie-b"} {
		if !strings.Contains(string(data), `"correlation_id":"corr-`+id+`"`) {
			t.Errorf("archive missing %s", id)
		}
	}

	remaining, _ := store.Count(context.Background(), &audit.Query{})
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestPruner_NoArchiveWhenNoRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	storeAt(t, store, "new-1", fixedNow)

	archiveDir := filepath.Join(t.TempDir(), "archives")
	pruner := newTestPruner(store, &Config{
		RetentionDays:       90,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if _, err := os.Stat(archiveDir); !os.IsNotExist(err) {
		t.Errorf("archive directory should not be created when nothing is pruned")
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "valid daily schedule", schedule: "0 3 * * *", wantRunning: true},
		{name: "valid hourly schedule", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule", schedule: ""},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := newTestPruner(storage.NewMemoryStorage(), &Config{
				PruneSchedule: tt.schedule,
				RetentionDays: 90,
			})
			scheduler := NewScheduler(pruner)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && scheduler.NextRun() == nil {
				t.Error("NextRun() returned nil for running scheduler")
			}

			scheduler.Stop()
			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_GracefulShutdown(t *testing.T) {
	pruner := newTestPruner(storage.NewMemoryStorage(), &Config{
		PruneSchedule: "0 3 * * *",
		RetentionDays: 90,
	})
	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancelled")
	}
}

func TestScheduler_RunPruningReportsResult(t *testing.T) {
	store := storage.NewMemoryStorage()
	storeAt(t, store, "old", fixedNow.AddDate(0, 0, -100))

	pruner := newTestPruner(store, &Config{RetentionDays: 90})
	scheduler := NewScheduler(pruner)

	var gotDeleted int64
	var gotErr error
	scheduler.OnResult(func(deleted int64, err error) {
		gotDeleted, gotErr = deleted, err
	})

	scheduler.runPruning(context.Background())

	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if gotDeleted != 1 {
		t.Errorf("deleted = %d, want 1", gotDeleted)
	}
}
