// Package storage provides audit record storage backends.
//
// Three backends implement audit.Storage:
//
//   - SQLiteStorage: file-backed, with either the cgo driver
//     (github.com/mattn/go-sqlite3) or the pure Go driver (modernc.org/sqlite)
//   - PostgresStorage: pgx connection pool for shared deployments
//   - MemoryStorage: for tests and "run --dev"; not persisted, and query
//     results are snapshotted before they are streamed
//
// All backends return records in ascending timestamp order and filter by case
// type using the two-character short code that suffixes every case UUID.
package storage
