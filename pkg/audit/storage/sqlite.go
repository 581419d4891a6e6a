package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"casework-hq/auditexport/pkg/audit"
)

// Supported database/sql driver names for the SQLite backend.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite3" (cgo) or "sqlite" (pure Go).
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the audit.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, audit.NewStorageError("sqlite", "open",
			fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", config.Driver, DriverCGO, DriverPureGo))
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(config.Driver, dataSourceName(config))
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// dataSourceName applies the busy timeout on every pooled connection using
// each driver's DSN syntax.
func dataSourceName(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	if ms <= 0 {
		return config.Path
	}
	if config.Driver == DriverPureGo {
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", config.Path, ms)
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", config.Path, ms)
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists an audit record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.AuditRecord) error {
	const query = `
		INSERT INTO audit_data (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var caseUUID interface{}
	if record.CaseUUID != "" {
		caseUUID = record.CaseUUID
	}

	_, err := s.db.ExecContext(ctx, query,
		record.ID, caseUUID, record.CorrelationID, record.RaisingService,
		record.Payload, record.Namespace, formatTimestamp(record.Timestamp),
		record.Type, record.UserID,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves audit records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.selectSQL(query), s.args(query)...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.AuditRecord{}
	for rows.Next() {
		record, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream returns a channel of audit records for memory-efficient streaming.
// The channels are closed when the query completes, errors, or ctx is done.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.AuditRecord, <-chan error, error) {
	recordsCh := make(chan *audit.AuditRecord, 100) // Buffer 100 records
	errCh := make(chan error, 1)

	sqlQuery := s.selectSQL(query)
	args := s.args(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanSQLiteRow(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of audit records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := s.where(query)

	sqlQuery := "SELECT COUNT(*) FROM audit_data"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes audit records matching the query filters.
// Returns the number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := s.where(query)

	sqlQuery := "DELETE FROM audit_data"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) where(query *audit.Query) (string, []interface{}) {
	return buildWhereClause(query,
		func(int) string { return "?" },
		func(t time.Time) interface{} { return formatTimestamp(t) },
	)
}

func (s *SQLiteStorage) selectSQL(query *audit.Query) string {
	whereClause, _ := s.where(query)
	sqlQuery := "SELECT " + selectColumns + " FROM audit_data"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	return sqlQuery + orderAndPage(query, "-1")
}

func (s *SQLiteStorage) args(query *audit.Query) []interface{} {
	_, args := s.where(query)
	return args
}

// formatTimestamp renders t in the fixed-width UTC layout stored on disk.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// scanSQLiteRow scans a database row into an AuditRecord.
func scanSQLiteRow(row *sql.Rows) (*audit.AuditRecord, error) {
	var record audit.AuditRecord
	var caseUUID, payload sql.NullString
	var timestamp string

	err := row.Scan(
		&record.ID, &caseUUID, &record.CorrelationID, &record.RaisingService,
		&payload, &record.Namespace, &timestamp, &record.Type, &record.UserID,
	)
	if err != nil {
		return nil, err
	}

	record.CaseUUID = caseUUID.String
	record.Payload = payload.String

	record.Timestamp, err = time.Parse(TimestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse audit_timestamp %q: %w", timestamp, err)
	}

	return &record, nil
}
