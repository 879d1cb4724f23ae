// Package services holds the tracker's business logic: reconciling tester
// observations into progress rows, projecting progress into reports and
// editing the test case catalog. Services depend on repository interfaces
// only, so every backend (SQLite, PostgreSQL, CSV) is interchangeable.
package services
