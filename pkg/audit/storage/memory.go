package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"casework-hq/auditexport/pkg/audit"
)

// MemoryStorage implements the audit.Storage interface using an in-memory map.
// This implementation is intended for tests and local runs only.
type MemoryStorage struct {
	records map[string]*audit.AuditRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.AuditRecord),
	}
}

// Store persists an audit record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy

	return nil
}

// Query retrieves audit records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.AuditRecord, error) {
	return s.snapshot(query), nil
}

// QueryStream returns a channel of audit records matching the query.
// Matches are snapshotted up front so the store stays writable while the
// consumer drains the channel. Unlike the SQL backends the whole result is
// held in memory, which is why this backend is limited to development use.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.AuditRecord, <-chan error, error) {
	recordsCh := make(chan *audit.AuditRecord, 100) // Buffer 100 records
	errCh := make(chan error, 1)

	results := s.snapshot(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range results {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of audit records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes audit records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.AuditRecord)
	return nil
}

// snapshot returns sorted, paginated copies of the matching records.
func (s *MemoryStorage) snapshot(query *audit.Query) []*audit.AuditRecord {
	s.mu.RLock()
	results := []*audit.AuditRecord{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	desc := strings.EqualFold(query.SortOrder, "desc")
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if desc {
				return a.Timestamp.After(b.Timestamp)
			}
			return a.Timestamp.Before(b.Timestamp)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})

	start := query.Offset
	if start > len(results) {
		return []*audit.AuditRecord{}
	}
	results = results[start:]

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *audit.AuditRecord, query *audit.Query) bool {
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}

	if len(query.Types) > 0 {
		found := false
		for _, t := range query.Types {
			if record.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if query.CaseTypeShortCode != "" && !strings.EqualFold(record.CaseTypeShortCode(), query.CaseTypeShortCode) {
		return false
	}
	if query.CaseUUID != "" && record.CaseUUID != query.CaseUUID {
		return false
	}
	if query.UserID != "" && record.UserID != query.UserID {
		return false
	}
	if query.RaisingService != "" && record.RaisingService != query.RaisingService {
		return false
	}

	return true
}
