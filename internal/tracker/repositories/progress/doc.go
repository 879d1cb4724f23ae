// Package progress provides the durable progress table.
//
// # Overview
//
// The package defines a Repository interface for querying and mutating
// ProgressEntry rows (see internal/tracker/models). Two implementations
// are provided:
//
//   - SQLRepository: SQLite or PostgreSQL over database/sql
//   - CSVRepository: a single shared CSV file guarded by flock
//
// # Matching
//
// Rows are selected by models.ProgressKey: test case, tester and a window of
// calendar days. Results are ordered by insertion, most recent last.
//
// # Concurrency
//
// Upsert and RemoveWindow are read-modify-write operations performed under
// an exclusive lock for their whole duration: an in-process mutex plus the
// database transaction lock (SQLite IMMEDIATE transactions, PostgreSQL
// advisory locks) or an flock on the CSV sidecar lock file. Concurrent
// upserts on one key therefore never lose an update; the last writer wins.
//
// Typical Usage
//
//	repo := progress.NewSQLiteRepository(db)
//	entry, _ := repo.Upsert(ctx, key, update)
//	rows, _ := repo.Query(ctx, key)
//	n, _ := repo.RemoveWindow(ctx, "alice", models.AllTime)
package progress
