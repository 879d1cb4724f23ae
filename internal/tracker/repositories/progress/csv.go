package progress

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

	"github.com/google/uuid"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/filex"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

// CSVHeader is the column layout of the progress file.
var CSVHeader = []string{
	"Test Case ID", "Date", "Status", "Remarks", "User", "Remark Image Filename", "Entry ID", "Observed At",
}

// legacyColumns is the width of files written before Entry ID and
// Observed At were added. Such rows get a stable ID derived from their
// position and content, and Observed At is midnight UTC of Date. The next
// mutation rewrites the file in the full layout.
const legacyColumns = 6

// CSVRepository implements Repository over one shared CSV file. Rows are
// kept in insertion order; Seq is the 1-based row position.
type CSVRepository struct {
	path        string
	lockPath    string
	lockTimeout time.Duration

	mu sync.Mutex
}

// NewCSVRepository stores progress in path, locking path+".lock" around
// every mutation for at most lockTimeout (zero waits indefinitely).
func NewCSVRepository(path string, lockTimeout time.Duration) *CSVRepository {
	return &CSVRepository{path: path, lockPath: path + ".lock", lockTimeout: lockTimeout}
}

func (r *CSVRepository) Query(ctx context.Context, key models.ProgressKey) ([]models.ProgressEntry, error) {
	all, err := r.read()
	if err != nil {
		return nil, err
	}
	var result []models.ProgressEntry
	for _, e := range all {
		if key.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *CSVRepository) All(ctx context.Context) ([]models.ProgressEntry, error) {
	return r.read()
}

func (r *CSVRepository) Upsert(ctx context.Context, key models.ProgressKey, update models.ProgressUpdate) (*models.ProgressEntry, error) {
	if err := validateUpsertKey(key); err != nil {
		return nil, err
	}

	var out models.ProgressEntry

	err := r.withLock(ctx, func() error {
		all, err := r.read()
		if err != nil {
			return err
		}

		last := -1
		for i, e := range all {
			if key.Matches(e) {
				last = i
			}
		}

		if last >= 0 {
			out = apply(&all[last], key, update)
			all[last] = out
		} else {
			out = apply(nil, key, update)
			out.ID = uuid.NewString()
			out.Seq = int64(len(all) + 1)
			all = append(all, out)
		}

		return r.write(all)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CSVRepository) RemoveWindow(ctx context.Context, tester string, window models.Window) (int64, error) {
	if tester == "" {
		return 0, fmt.Errorf("%w: tester is required", common.ErrValidation)
	}

	var removed int64

	err := r.withLock(ctx, func() error {
		all, err := r.read()
		if err != nil {
			return err
		}

		key := models.ProgressKey{Tester: tester, Window: window}
		kept := all[:0]
		for _, e := range all {
			if key.Matches(e) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if removed == 0 {
			return nil
		}
		return r.write(kept)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
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

func (r *CSVRepository) read() ([]models.ProgressEntry, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", common.ErrStorage, r.path, err)
	}
	defer f.Close()

	entries, err := decodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrStorage, r.path, err)
	}
	return entries, nil
}

func (r *CSVRepository) write(entries []models.ProgressEntry) error {
	var buf bytes.Buffer
	if err := encodeCSV(&buf, entries); err != nil {
		return fmt.Errorf("%w: encode progress: %w", common.ErrStorage, err)
	}
	if err := filex.WriteAtomic(r.path, buf.Bytes(), 0o660); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

func encodeCSV(w io.Writer, entries []models.ProgressEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.TestCaseID, e.Day, string(e.Status), e.Remarks, e.Tester, e.Attachment, e.ID, formatTime(e.ObservedAt),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decodeCSV(rd io.Reader) ([]models.ProgressEntry, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !validWidth(len(header)) || strings.TrimPrefix(header[0], "\ufeff") != CSVHeader[0] {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var entries []models.ProgressEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !validWidth(len(rec)) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d or %d fields, got %d", line, legacyColumns, len(CSVHeader), len(rec))
		}

		status, err := models.ParseStatus(rec[2])
		if err != nil {
			return nil, err
		}

		e := models.ProgressEntry{
			Seq:        int64(len(entries) + 1),
			TestCaseID: rec[0],
			Day:        rec[1],
			Status:     status,
			Remarks:    rec[3],
			Tester:     rec[4],
			Attachment: rec[5],
		}
		if len(rec) == legacyColumns {
			if e.ObservedAt, err = time.Parse(models.DayLayout, e.Day); err != nil {
				return nil, fmt.Errorf("bad date %q: %w", e.Day, err)
			}
			e.ID = legacyID(e.Seq, rec)
		} else {
			if e.ObservedAt, err = parseTime(rec[7]); err != nil {
				return nil, err
			}
			e.ID = rec[6]
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func validWidth(n int) bool {
	return n == legacyColumns || n == len(CSVHeader)
}

// legacyID is deterministic so repeated reads of an unmodified file agree.
func legacyID(seq int64, rec []string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d\x1f%s", seq, strings.Join(rec, "\x1f")))).String()
}
