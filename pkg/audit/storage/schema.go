package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// TimestampLayout is the fixed-width UTC layout used for the audit_timestamp
// column. Fixed width keeps lexical and chronological order identical.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
-- Audit records table
CREATE TABLE IF NOT EXISTS audit_data (
    id TEXT PRIMARY KEY,
    case_uuid TEXT,
    correlation_id TEXT NOT NULL,
    raising_service TEXT NOT NULL,
    audit_payload TEXT,
    namespace TEXT NOT NULL,
    audit_timestamp TEXT NOT NULL,
    type TEXT NOT NULL,
    user_id TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for export queries
CREATE INDEX IF NOT EXISTS idx_audit_data_timestamp ON audit_data(audit_timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_data_type ON audit_data(type);
CREATE INDEX IF NOT EXISTS idx_audit_data_case_uuid ON audit_data(case_uuid);
CREATE INDEX IF NOT EXISTS idx_audit_data_user_id ON audit_data(user_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

// PostgresSchema creates the audit tables on PostgreSQL.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS audit_data (
    id TEXT PRIMARY KEY,
    case_uuid TEXT,
    correlation_id TEXT NOT NULL,
    raising_service TEXT NOT NULL,
    audit_payload TEXT,
    namespace TEXT NOT NULL,
    audit_timestamp TIMESTAMPTZ NOT NULL,
    type TEXT NOT NULL,
    user_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_data_timestamp ON audit_data(audit_timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_data_type ON audit_data(type);
CREATE INDEX IF NOT EXISTS idx_audit_data_case_uuid ON audit_data(case_uuid);
`

// PostgresInsertSchemaVersion records the schema version on PostgreSQL.
const PostgresInsertSchemaVersion = `
INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING;
`

// selectColumns lists the audit_data columns in scan order.
const selectColumns = "id, case_uuid, correlation_id, raising_service, audit_payload, namespace, audit_timestamp, type, user_id"
