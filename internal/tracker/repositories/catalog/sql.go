package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/dbx"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

const selectColumns = `SELECT id, page_field, module, task, steps, expected_result, reference_image FROM test_cases`

// SQLRepository implements Repository over SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect dbx.Dialect
	mu      sync.Mutex
}

func NewSQLiteRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.SQLite}
}

func NewPostgresRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.Postgres}
}

func (r *SQLRepository) ListAll(ctx context.Context) ([]models.TestCase, error) {
	return r.list(ctx, r.db)
}

func (r *SQLRepository) list(ctx context.Context, db dbx.DBTX) ([]models.TestCase, error) {
	rows, err := db.QueryContext(ctx, selectColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: select test cases: %w", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []models.TestCase
	for rows.Next() {
		var tc models.TestCase
		if err := rows.Scan(&tc.ID, &tc.PageField, &tc.Module, &tc.Task, &tc.Steps, &tc.ExpectedResult, &tc.ReferenceImage); err != nil {
			return nil, fmt.Errorf("%w: scan test case: %w", common.ErrStorage, err)
		}
		result = append(result, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate test cases: %w", common.ErrStorage, err)
	}

	sortCases(result)
	return result, nil
}

func (r *SQLRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM test_cases WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: count test cases: %w", common.ErrStorage, err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.TestCase, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectColumns+` WHERE id = ?`), id)

	var tc models.TestCase
	err := row.Scan(&tc.ID, &tc.PageField, &tc.Module, &tc.Task, &tc.Steps, &tc.ExpectedResult, &tc.ReferenceImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: test case %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select test case: %w", common.ErrStorage, err)
	}
	return &tc, nil
}

func (r *SQLRepository) Create(ctx context.Context, tc *models.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var validationErr error

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if r.dialect == dbx.Postgres {
			if _, err := tx.ExecContext(ctx, `LOCK TABLE test_cases IN SHARE ROW EXCLUSIVE MODE`); err != nil {
				return fmt.Errorf("lock test cases: %w", err)
			}
		}

		existing, err := r.list(ctx, tx)
		if err != nil {
			return err
		}

		if tc.ID == "" {
			tc.ID = models.NextTestCaseID(ids(existing))
		} else {
			for _, e := range existing {
				if e.ID == tc.ID {
					validationErr = fmt.Errorf("%w: test case %s already exists", common.ErrValidation, tc.ID)
					return validationErr
				}
			}
		}

		_, err = tx.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO test_cases (id, page_field, module, task, steps, expected_result, reference_image)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			tc.ID, tc.PageField, tc.Module, tc.Task, tc.Steps, tc.ExpectedResult, tc.ReferenceImage)
		if err != nil {
			return fmt.Errorf("insert test case: %w", err)
		}
		return nil
	})
	if validationErr != nil {
		return validationErr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, tc *models.TestCase) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE test_cases SET page_field = ?, module = ?, task = ?, steps = ?, expected_result = ?, reference_image = ?
		WHERE id = ?`),
		tc.PageField, tc.Module, tc.Task, tc.Steps, tc.ExpectedResult, tc.ReferenceImage, tc.ID)
	if err != nil {
		return fmt.Errorf("%w: update test case: %w", common.ErrStorage, err)
	}
	return expectOne(res, tc.ID)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM test_cases WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%w: delete test case: %w", common.ErrStorage, err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", common.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: test case %s", common.ErrNotFound, id)
	}
	return nil
}
