package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/logging"
	"github.com/dmitrijs2005/testtracker/internal/tracker/attachments"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/catalog"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/progress"
)

// Outcome is the result of one reconciliation.
type Outcome struct {
	// Entry is the progress row as persisted.
	Entry *models.ProgressEntry

	// AttachmentErr is set when a supplied attachment could not be stored.
	// The progress update still committed, keeping the previous attachment.
	AttachmentErr error
}

// Reconciler turns tester observations into exactly one progress row per
// test case, tester and day.
type Reconciler struct {
	progress    progress.Repository
	catalog     catalog.Reader
	attachments attachments.Store
	log         logging.Logger
	settings

	// names serializes name reservation and upload.
	names sync.Mutex
}

// NewReconciler wires the reconciler. store may be nil, in which case
// supplied attachments are reported through Outcome.AttachmentErr.
func NewReconciler(p progress.Repository, c catalog.Reader, store attachments.Store, log logging.Logger, opts ...Option) *Reconciler {
	return &Reconciler{
		progress:    p,
		catalog:     c,
		attachments: store,
		log:         log,
		settings:    applyOptions(opts),
	}
}

// Reconcile records obs for today. It performs a single Upsert: the latest
// entry for (test case, tester, today) is updated in place, or a new one is
// appended. An empty tester or test case ID is rejected with
// common.ErrValidation before anything is written.
func (r *Reconciler) Reconcile(ctx context.Context, obs models.Observation) (*Outcome, error) {
	tester := strings.TrimSpace(obs.Tester)
	if tester == "" {
		return nil, fmt.Errorf("%w: tester name is required", common.ErrValidation)
	}
	testCaseID := strings.TrimSpace(obs.TestCaseID)
	if testCaseID == "" {
		return nil, fmt.Errorf("%w: test case id is required", common.ErrValidation)
	}

	now := r.current()
	log := r.log.With("test_case", testCaseID, "tester", tester)

	r.checkCatalog(ctx, log, testCaseID)

	key := models.ProgressKey{TestCaseID: testCaseID, Tester: tester, Window: models.DayWindow(now)}
	update := models.ProgressUpdate{
		Status:     models.StatusFromFlag(obs.Tested),
		Remarks:    obs.Remarks,
		ObservedAt: now,
	}

	out := &Outcome{}

	var written string
	if obs.Attachment != nil {
		name, err := r.storeAttachment(ctx, testCaseID, obs.Attachment, now)
		if err != nil {
			out.AttachmentErr = err
			log.Warn(ctx, "attachment not stored, keeping previous", "file", obs.Attachment.Name, "error", err)
		} else {
			written = name
			update.Attachment = &name
		}
	}

	entry, err := r.progress.Upsert(ctx, key, update)
	if err != nil {
		if written != "" {
			if delErr := r.attachments.Delete(ctx, written); delErr != nil {
				log.Warn(ctx, "orphaned attachment left behind", "file", written, "error", delErr)
			}
		}
		if !errors.Is(err, common.ErrStorage) && !errors.Is(err, common.ErrValidation) {
			err = fmt.Errorf("%w: %w", common.ErrStorage, err)
		}
		return nil, fmt.Errorf("reconcile %s for %s: %w", testCaseID, tester, err)
	}

	log.Debug(ctx, "progress reconciled",
		"entry", entry.ID, "day", entry.Day, "status", entry.Status, "attachment", entry.Attachment)

	out.Entry = entry
	return out, nil
}

// checkCatalog warns about dangling IDs. Lookup failures never block the
// observation.
func (r *Reconciler) checkCatalog(ctx context.Context, log logging.Logger, id string) {
	if r.catalog == nil {
		return
	}
	ok, err := r.catalog.Exists(ctx, id)
	switch {
	case err != nil:
		log.Warn(ctx, "catalog lookup failed", "error", err)
	case !ok:
		log.Warn(ctx, "test case not in catalog, recording anyway")
	}
}

func (r *Reconciler) storeAttachment(ctx context.Context, testCaseID string, up *models.Upload, now time.Time) (string, error) {
	if r.attachments == nil {
		return "", fmt.Errorf("%w: no attachment store configured", common.ErrAttachmentWrite)
	}
	r.names.Lock()
	defer r.names.Unlock()

	return putFresh(ctx, r.attachments, attachments.FileName(testCaseID, now, up.Name), up.Data)
}

// putFresh stores data under name or a free variant of it, so no file an
// entry already references is overwritten. Failures wrap
// common.ErrAttachmentWrite.
func putFresh(ctx context.Context, store attachments.Store, name string, data []byte) (string, error) {
	name, err := attachments.FreeName(ctx, store, name)
	if err == nil {
		err = store.Put(ctx, name, data)
	}
	if err != nil {
		if !errors.Is(err, common.ErrAttachmentWrite) {
			err = fmt.Errorf("%w: %w", common.ErrAttachmentWrite, err)
		}
		return "", err
	}
	return name, nil
}
