package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/logging"
	"github.com/dmitrijs2005/testtracker/internal/tracker/attachments"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/catalog"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Created int
	Updated int
}

// CatalogService edits the test case catalog.
type CatalogService struct {
	repo        catalog.Repository
	attachments attachments.Store
	log         logging.Logger
	settings

	names sync.Mutex
}

func NewCatalogService(repo catalog.Repository, store attachments.Store, log logging.Logger, opts ...Option) *CatalogService {
	return &CatalogService{repo: repo, attachments: store, log: log, settings: applyOptions(opts)}
}

func (s *CatalogService) List(ctx context.Context) ([]models.TestCase, error) {
	return s.repo.ListAll(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.TestCase, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

func validateCase(tc *models.TestCase) error {
	tc.ID = strings.TrimSpace(tc.ID)
	if strings.TrimSpace(tc.Task) == "" {
		return fmt.Errorf("%w: task is required", common.ErrValidation)
	}
	return nil
}

// Add creates a test case, allocating its ID when blank. The reference
// image is stored after the ID is known; if that fails the test case is
// kept and an error wrapping common.ErrAttachmentWrite is returned with it.
func (s *CatalogService) Add(ctx context.Context, tc *models.TestCase, image *models.Upload) (*models.TestCase, error) {
	if err := validateCase(tc); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tc); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "test case added", "test_case", tc.ID)

	if image == nil {
		return tc, nil
	}

	if s.attachments == nil {
		return tc, fmt.Errorf("%w: no attachment store configured", common.ErrAttachmentWrite)
	}
	s.names.Lock()
	name, err := putFresh(ctx, s.attachments, attachments.FileName(tc.ID, s.current(), image.Name), image.Data)
	s.names.Unlock()
	if err != nil {
		s.log.Warn(ctx, "reference image not stored", "test_case", tc.ID, "error", err)
		return tc, err
	}

	tc.ReferenceImage = name
	if err := s.repo.Update(ctx, tc); err != nil {
		_ = s.attachments.Delete(ctx, name)
		tc.ReferenceImage = ""
		return tc, err
	}
	return tc, nil
}

// Edit replaces every field of an existing test case.
func (s *CatalogService) Edit(ctx context.Context, tc *models.TestCase) error {
	if err := validateCase(tc); err != nil {
		return err
	}
	return s.repo.Update(ctx, tc)
}

// Attachment reads a stored remark screenshot or reference image.
func (s *CatalogService) Attachment(ctx context.Context, name string) ([]byte, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: attachment name is required", common.ErrValidation)
	}
	if s.attachments == nil {
		return nil, fmt.Errorf("%w: no attachment store configured", common.ErrNotFound)
	}
	return s.attachments.Get(ctx, name)
}

// Remove deletes a test case and its reference image. Progress rows that
// reference it are left alone and show up as dangling in reports.
func (s *CatalogService) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if tc.ReferenceImage != "" && s.attachments != nil {
		if err := s.attachments.Delete(ctx, tc.ReferenceImage); err != nil {
			s.log.Warn(ctx, "reference image not removed", "test_case", id, "file", tc.ReferenceImage, "error", err)
		}
	}
	s.log.Info(ctx, "test case removed", "test_case", id)
	return nil
}

// ImportCSV loads catalog rows. Blank IDs are allocated, known IDs are
// updated and unknown explicit IDs are created as given. Fully blank rows
// are skipped. The first invalid row stops the import; earlier rows stay.
func (s *CatalogService) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	rows, err := catalog.DecodeCSV(r)
	if err != nil {
		return res, fmt.Errorf("%w: parse catalog csv: %w", common.ErrValidation, err)
	}

	for i, tc := range rows {
		if tc == (models.TestCase{}) {
			continue
		}
		if err := validateCase(&tc); err != nil {
			return res, fmt.Errorf("row %d: %w", i+2, err)
		}

		if tc.ID != "" {
			ok, err := s.repo.Exists(ctx, tc.ID)
			if err != nil {
				return res, err
			}
			if ok {
				if err := s.repo.Update(ctx, &tc); err != nil {
					return res, err
				}
				res.Updated++
				continue
			}
		}

		if err := s.repo.Create(ctx, &tc); err != nil {
			return res, fmt.Errorf("row %d: %w", i+2, err)
		}
		res.Created++
	}

	s.log.Info(ctx, "catalog imported", "created", res.Created, "updated", res.Updated)
	return res, nil
}

// ExportCSV writes the whole catalog in import format.
func (s *CatalogService) ExportCSV(ctx context.Context, w io.Writer) error {
	cases, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	if err := catalog.EncodeCSV(w, cases); err != nil {
		return fmt.Errorf("write catalog csv: %w", err)
	}
	return nil
}
