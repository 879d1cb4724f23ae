package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/testtracker/internal/dbx"
	"github.com/dmitrijs2005/testtracker/internal/logging"
	"github.com/dmitrijs2005/testtracker/internal/tracker/migrations"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/catalog"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/progress"
)

var monday = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type backend struct {
	name string
	open func(t *testing.T) (progress.Repository, catalog.Repository)
}

var backends = []backend{
	{"sqlite", func(t *testing.T) (progress.Repository, catalog.Repository) {
		dsn := "file:" + filepath.Join(t.TempDir(), "tracker.db") + "?_pragma=busy_timeout(5000)&_txlock=immediate"
		db, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, migrations.Up(context.Background(), db, dbx.SQLite))
		return progress.NewSQLiteRepository(db), catalog.NewSQLiteRepository(db)
	}},
	{"csv", func(t *testing.T) (progress.Repository, catalog.Repository) {
		dir := t.TempDir()
		return progress.NewCSVRepository(filepath.Join(dir, "progress.csv"), time.Second),
			catalog.NewCSVRepository(filepath.Join(dir, "catalog.csv"), time.Second)
	}},
}

// fakeClock is advanced by tests between observations.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memStore is an in-memory attachments.Store.
type memStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	putErr  error
	deleted []string
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Put(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.files[name] = data
	return nil
}

func (m *memStore) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func (m *memStore) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok, nil
}

func (m *memStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	m.deleted = append(m.deleted, name)
	return nil
}

// countingProgress records mutations and can fail them.
type countingProgress struct {
	progress.Repository
	mu        sync.Mutex
	mutations int
	upsertErr error
}

func (c *countingProgress) Upsert(ctx context.Context, key models.ProgressKey, u models.ProgressUpdate) (*models.ProgressEntry, error) {
	c.mu.Lock()
	c.mutations++
	err := c.upsertErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Repository.Upsert(ctx, key, u)
}

func (c *countingProgress) RemoveWindow(ctx context.Context, tester string, w models.Window) (int64, error) {
	c.mu.Lock()
	c.mutations++
	c.mu.Unlock()
	return c.Repository.RemoveWindow(ctx, tester, w)
}

func bufferLogger(t *testing.T) (logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := logging.New(&buf, "debug")
	require.NoError(t, err)
	return l, &buf
}

func seedCatalog(t *testing.T, repo catalog.Repository, cases ...models.TestCase) {
	t.Helper()
	for i := range cases {
		require.NoError(t, repo.Create(context.Background(), &cases[i]))
	}
}
