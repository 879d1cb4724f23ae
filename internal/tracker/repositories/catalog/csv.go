package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/filex"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

// CSVHeader is the column layout shared by catalog.csv and catalog
// import/export.
var CSVHeader = []string{
	"Test Case ID", "Page/Field", "Module", "Task", "Steps", "Expected Result", "Image Filename",
}

// CSVRepository implements Repository over catalog.csv. Mutations take the
// same mutex plus sidecar flock discipline as the progress file.
type CSVRepository struct {
	path        string
	lockPath    string
	lockTimeout time.Duration

	mu sync.Mutex
}

func NewCSVRepository(path string, lockTimeout time.Duration) *CSVRepository {
	return &CSVRepository{path: path, lockPath: path + ".lock", lockTimeout: lockTimeout}
}

func (r *CSVRepository) ListAll(ctx context.Context) ([]models.TestCase, error) {
	cases, err := r.read()
	if err != nil {
		return nil, err
	}
	sortCases(cases)
	return cases, nil
}

func (r *CSVRepository) Exists(ctx context.Context, id string) (bool, error) {
	cases, err := r.read()
	if err != nil {
		return false, err
	}
	return indexOf(cases, id) >= 0, nil
}

func (r *CSVRepository) Get(ctx context.Context, id string) (*models.TestCase, error) {
	cases, err := r.read()
	if err != nil {
		return nil, err
	}
	i := indexOf(cases, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: test case %s", common.ErrNotFound, id)
	}
	return &cases[i], nil
}

func (r *CSVRepository) Create(ctx context.Context, tc *models.TestCase) error {
	return r.withLock(ctx, func() error {
		cases, err := r.read()
		if err != nil {
			return err
		}

		if tc.ID == "" {
			tc.ID = models.NextTestCaseID(ids(cases))
		} else if indexOf(cases, tc.ID) >= 0 {
			return fmt.Errorf("%w: test case %s already exists", common.ErrValidation, tc.ID)
		}

		return r.write(append(cases, *tc))
	})
}

func (r *CSVRepository) Update(ctx context.Context, tc *models.TestCase) error {
	return r.withLock(ctx, func() error {
		cases, err := r.read()
		if err != nil {
			return err
		}
		i := indexOf(cases, tc.ID)
		if i < 0 {
			return fmt.Errorf("%w: test case %s", common.ErrNotFound, tc.ID)
		}
		cases[i] = *tc
		return r.write(cases)
	})
}

func (r *CSVRepository) Delete(ctx context.Context, id string) error {
	return r.withLock(ctx, func() error {
		cases, err := r.read()
		if err != nil {
			return err
		}
		i := indexOf(cases, id)
		if i < 0 {
			return fmt.Errorf("%w: test case %s", common.ErrNotFound, id)
		}
		return r.write(append(cases[:i], cases[i+1:]...))
	})
}

func indexOf(cases []models.TestCase, id string) int {
	for i, c := range cases {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (r *CSVRepository) withLock(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, err := filex.Lock(ctx, r.lockPath, r.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", common.ErrStorage, r.lockPath, err)
	}
	defer lock.Unlock()

	return fn()
}

func (r *CSVRepository) read() ([]models.TestCase, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", common.ErrStorage, r.path, err)
	}
	defer f.Close()

	cases, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrStorage, r.path, err)
	}
	return cases, nil
}

func (r *CSVRepository) write(cases []models.TestCase) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, cases); err != nil {
		return fmt.Errorf("%w: encode catalog: %w", common.ErrStorage, err)
	}
	if err := filex.WriteAtomic(r.path, buf.Bytes(), 0o660); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

// EncodeCSV writes the header followed by one row per test case.
func EncodeCSV(w io.Writer, cases []models.TestCase) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, c := range cases {
		rec := []string{c.ID, c.PageField, c.Module, c.Task, c.Steps, c.ExpectedResult, c.ReferenceImage}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads catalog rows. A leading byte order mark is tolerated and
// cell whitespace is trimmed. IDs may be blank; callers allocate them.
func DecodeCSV(rd io.Reader) ([]models.TestCase, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimPrefix(header[0], "\ufeff") != CSVHeader[0] {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var cases []models.TestCase
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		cases = append(cases, models.TestCase{
			ID:             rec[0],
			PageField:      rec[1],
			Module:         rec[2],
			Task:           rec[3],
			Steps:          rec[4],
			ExpectedResult: rec[5],
			ReferenceImage: rec[6],
		})
	}
	return cases, nil
}
