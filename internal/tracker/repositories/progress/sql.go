package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/dbx"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

const selectColumns = `SELECT seq, id, test_case_id, tester, day, observed_at, status, remarks, attachment FROM progress`

// SQLRepository implements Repository over SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect dbx.Dialect

	// mu serialises read-modify-write cycles issued through this value.
	mu sync.Mutex
}

// NewSQLiteRepository returns a repository for a SQLite database. Open the
// database with _txlock=immediate so writers from other processes queue on
// the database lock instead of failing mid-transaction.
func NewSQLiteRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.SQLite}
}

// NewPostgresRepository returns a repository for a PostgreSQL database.
func NewPostgresRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.Postgres}
}

func (r *SQLRepository) Query(ctx context.Context, key models.ProgressKey) ([]models.ProgressEntry, error) {
	where, args := keyFilter(key)
	query := r.dialect.Rebind(selectColumns + where + ` ORDER BY seq`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select progress: %w", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []models.ProgressEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan progress: %w", common.ErrStorage, err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate progress: %w", common.ErrStorage, err)
	}
	return result, nil
}

func (r *SQLRepository) All(ctx context.Context) ([]models.ProgressEntry, error) {
	return r.Query(ctx, models.ProgressKey{})
}

// advisoryLockQuery serializes upserts of one key across connections. The
// key parts travel as separate text parameters; the two-int form keeps the
// test case apart from tester and day.
const advisoryLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1::text), hashtext($2::text || '|' || $3::text))`

func (r *SQLRepository) Upsert(ctx context.Context, key models.ProgressKey, update models.ProgressUpdate) (*models.ProgressEntry, error) {
	if err := validateUpsertKey(key); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out models.ProgressEntry

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if r.dialect == dbx.Postgres {
			if _, err := tx.ExecContext(ctx, advisoryLockQuery, key.TestCaseID, key.Tester, key.Window.From); err != nil {
				return fmt.Errorf("advisory lock: %w", err)
			}
		}

		query := selectColumns + ` WHERE test_case_id = ? AND tester = ? AND day = ? ORDER BY seq DESC LIMIT 1`
		if r.dialect == dbx.Postgres {
			query += ` FOR UPDATE`
		}
		row := tx.QueryRowContext(ctx, r.dialect.Rebind(query), key.TestCaseID, key.Tester, key.Window.From)

		prev, err := scanEntry(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			out = apply(nil, key, update)
			out.ID = uuid.NewString()
			return r.insert(ctx, tx, &out)
		case err != nil:
			return fmt.Errorf("select last match: %w", err)
		}

		out = apply(prev, key, update)
		return r.update(ctx, tx, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upsert progress: %w", common.ErrStorage, err)
	}
	return &out, nil
}

func (r *SQLRepository) insert(ctx context.Context, tx dbx.DBTX, e *models.ProgressEntry) error {
	query := r.dialect.Rebind(`INSERT INTO progress (id, test_case_id, tester, day, observed_at, status, remarks, attachment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING seq`)

	err := tx.QueryRowContext(ctx, query,
		e.ID, e.TestCaseID, e.Tester, e.Day, formatTime(e.ObservedAt), string(e.Status), e.Remarks, e.Attachment,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert progress: %w", err)
	}
	return nil
}

func (r *SQLRepository) update(ctx context.Context, tx dbx.DBTX, e *models.ProgressEntry) error {
	query := r.dialect.Rebind(`UPDATE progress SET tester = ?, day = ?, observed_at = ?, status = ?, remarks = ?, attachment = ?
		WHERE seq = ?`)

	res, err := tx.ExecContext(ctx, query,
		e.Tester, e.Day, formatTime(e.ObservedAt), string(e.Status), e.Remarks, e.Attachment, e.Seq)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
	return nil
}

func (r *SQLRepository) RemoveWindow(ctx context.Context, tester string, window models.Window) (int64, error) {
	if tester == "" {
		return 0, fmt.Errorf("%w: tester is required", common.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	where, args := keyFilter(models.ProgressKey{Tester: tester, Window: window})
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM progress`+where), args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete progress: %w", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", common.ErrStorage, err)
	}
	return n, nil
}

// keyFilter renders key as a WHERE clause with '?' placeholders.
func keyFilter(key models.ProgressKey) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if key.TestCaseID != "" {
		conds = append(conds, "test_case_id = ?")
		args = append(args, key.TestCaseID)
	}
	if key.Tester != "" {
		conds = append(conds, "tester = ?")
		args = append(args, key.Tester)
	}
	if key.Window.From != "" {
		conds = append(conds, "day >= ?")
		args = append(args, key.Window.From)
	}
	if key.Window.To != "" {
		conds = append(conds, "day <= ?")
		args = append(args, key.Window.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.ProgressEntry, error) {
	var (
		e          models.ProgressEntry
		observedAt string
		status     string
	)
	if err := s.Scan(&e.Seq, &e.ID, &e.TestCaseID, &e.Tester, &e.Day, &observedAt, &status, &e.Remarks, &e.Attachment); err != nil {
		return nil, err
	}

	t, err := parseTime(observedAt)
	if err != nil {
		return nil, err
	}
	e.ObservedAt = t

	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	e.Status = st

	return &e, nil
}
