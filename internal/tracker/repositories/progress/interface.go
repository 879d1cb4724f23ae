package progress

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

// Repository describes the progress table operations.
type Repository interface {
	// Query returns entries matching key in insertion order (most recent last).
	Query(ctx context.Context, key models.ProgressKey) ([]models.ProgressEntry, error)

	// Upsert updates the last entry matching key or appends a new one, in
	// one locked transaction, and returns the persisted entry.
	Upsert(ctx context.Context, key models.ProgressKey, update models.ProgressUpdate) (*models.ProgressEntry, error)

	// RemoveWindow deletes every entry of tester within window and returns
	// the number of deleted rows.
	RemoveWindow(ctx context.Context, tester string, window models.Window) (int64, error)

	// All returns every entry in insertion order.
	All(ctx context.Context) ([]models.ProgressEntry, error)
}

func validateUpsertKey(key models.ProgressKey) error {
	if key.TestCaseID == "" {
		return fmt.Errorf("%w: test case id is required", common.ErrValidation)
	}
	if key.Tester == "" {
		return fmt.Errorf("%w: tester is required", common.ErrValidation)
	}
	if !key.Window.IsDay() {
		return fmt.Errorf("%w: upsert window must be a single day, got %s", common.ErrValidation, key.Window)
	}
	return nil
}

// apply merges update into prev (nil for a fresh row) under key.
func apply(prev *models.ProgressEntry, key models.ProgressKey, update models.ProgressUpdate) models.ProgressEntry {
	var e models.ProgressEntry
	if prev != nil {
		e = *prev
	}
	e.TestCaseID = key.TestCaseID
	e.Tester = key.Tester
	e.Day = key.Window.From
	e.ObservedAt = normalizeTime(update.ObservedAt)
	e.Status = update.Status
	e.Remarks = update.Remarks
	if update.Attachment != nil {
		e.Attachment = *update.Attachment
	}
	return e
}
