// Package storage opens the configured backend and wires the repositories
// and the attachment store the services work with.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/testtracker/internal/dbx"
	"github.com/dmitrijs2005/testtracker/internal/filex"
	"github.com/dmitrijs2005/testtracker/internal/tracker/attachments"
	"github.com/dmitrijs2005/testtracker/internal/tracker/config"
	"github.com/dmitrijs2005/testtracker/internal/tracker/migrations"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/catalog"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/progress"
)

// Repositories bundles everything the services need.
type Repositories struct {
	Progress    progress.Repository
	Catalog     catalog.Repository
	Attachments attachments.Store

	db *sql.DB
}

// Close releases the database handle, if any.
func (r *Repositories) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// seams for tests
var (
	sqlOpen    = sql.Open
	newS3Store = attachments.NewS3Store
)

// SQLiteDSN builds a modernc.org/sqlite DSN for path. Write transactions
// start IMMEDIATE so concurrent processes serialise on the database lock
// instead of failing on upgrade, and waiters retry for busy_timeout ms.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// InitDatabase opens the configured backend, applies migrations and
// creates the attachment store.
func InitDatabase(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	repos, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := openAttachments(ctx, cfg)
	if err != nil {
		return nil, errors.Join(err, repos.Close())
	}
	repos.Attachments = store

	return repos, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		dsn := cfg.DatabaseDSN
		if dsn == "" {
			if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
				return nil, fmt.Errorf("data dir: %w", err)
			}
			dsn = SQLiteDSN(cfg.SQLitePath())
		}
		db, err := openSQL(ctx, "sqlite", dsn, dbx.SQLite)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Progress: progress.NewSQLiteRepository(db),
			Catalog:  catalog.NewSQLiteRepository(db),
			db:       db,
		}, nil

	case config.BackendPostgres:
		db, err := openSQL(ctx, "pgx", cfg.DatabaseDSN, dbx.Postgres)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Progress: progress.NewPostgresRepository(db),
			Catalog:  catalog.NewPostgresRepository(db),
			db:       db,
		}, nil

	case config.BackendCSV:
		if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		return &Repositories{
			Progress: progress.NewCSVRepository(cfg.ProgressCSVPath(), cfg.LockTimeout),
			Catalog:  catalog.NewCSVRepository(cfg.CatalogCSVPath(), cfg.LockTimeout),
		}, nil
	}

	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func openSQL(ctx context.Context, driver, dsn string, dialect dbx.Dialect) (*sql.DB, error) {
	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := migrations.Up(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

func openAttachments(ctx context.Context, cfg *config.Config) (attachments.Store, error) {
	switch cfg.AttachmentBackend {
	case config.AttachmentsLocal:
		store, err := attachments.NewLocalStore(cfg.AttachmentsPath())
		if err != nil {
			return nil, fmt.Errorf("attachments dir: %w", err)
		}
		return store, nil
	case config.AttachmentsS3:
		store, err := newS3Store(ctx, attachments.S3Options{
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 attachments: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown attachment backend %q", cfg.AttachmentBackend)
}
