package models

import (
	"fmt"
	"time"
)

// Status is the tested/not-tested state recorded for an observation.
type Status string

const (
	StatusTested    Status = "Tested"
	StatusNotTested Status = "Not Tested"
)

// StatusFromFlag maps a checkbox value to a Status.
func StatusFromFlag(tested bool) Status {
	if tested {
		return StatusTested
	}
	return StatusNotTested
}

// ParseStatus accepts the stored spellings of a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusTested):
		return StatusTested, nil
	case string(StatusNotTested), "NotTested":
		return StatusNotTested, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ProgressEntry is one reconciled observation row.
type ProgressEntry struct {
	// ID is a stable row identifier (uuid).
	ID string

	// Seq orders rows by insertion; larger is newer.
	Seq int64

	// TestCaseID refers to a catalog entry. Dangling references are tolerated.
	TestCaseID string

	Tester string

	// Day is the calendar day (YYYY-MM-DD) of ObservedAt in the tracker's location.
	Day string

	ObservedAt time.Time
	Status     Status
	Remarks    string

	// Attachment is the remark image filename, empty when none.
	Attachment string
}

// Tested reports whether the entry records a passed check.
func (e ProgressEntry) Tested() bool {
	return e.Status == StatusTested
}

// ProgressKey selects progress entries. Empty TestCaseID or Tester match
// anything when querying; Upsert requires both plus a single-day window.
type ProgressKey struct {
	TestCaseID string
	Tester     string
	Window     Window
}

// Matches reports whether e falls under the key.
func (k ProgressKey) Matches(e ProgressEntry) bool {
	if k.TestCaseID != "" && e.TestCaseID != k.TestCaseID {
		return false
	}
	if k.Tester != "" && e.Tester != k.Tester {
		return false
	}
	return k.Window.Contains(e.Day)
}

// ProgressUpdate carries the mutable fields written by an upsert.
type ProgressUpdate struct {
	Status     Status
	Remarks    string
	ObservedAt time.Time

	// Attachment replaces the stored filename when non-nil; nil keeps
	// whatever the matched entry already carries.
	Attachment *string
}
