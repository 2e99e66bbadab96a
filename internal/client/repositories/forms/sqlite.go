package forms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *StoredRecord) error {
	query := `INSERT INTO forms (id, project_id, iv, ciphertext)
	        VALUES (?, ?, ?, ?)
	        ON CONFLICT(id) DO UPDATE SET project_id = excluded.project_id,
	            iv = excluded.iv,
	            ciphertext = excluded.ciphertext
	`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.ProjectID, rec.IV, rec.Ciphertext); err != nil {
		return fmt.Errorf("failed to upsert form: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*StoredRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, iv, ciphertext FROM forms WHERE id = ?`, id)

	rec := &StoredRecord{}
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.IV, &rec.Ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*StoredRecord, error) {
	return r.selectRecords(ctx, `SELECT id, project_id, iv, ciphertext FROM forms ORDER BY rowid`)
}

func (r *SQLiteRepository) GetAllByProject(ctx context.Context, projectID string) ([]*StoredRecord, error) {
	return r.selectRecords(ctx,
		`SELECT id, project_id, iv, ciphertext FROM forms WHERE project_id = ? ORDER BY rowid`, projectID)
}

func (r *SQLiteRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*StoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select forms: %w", err)
	}
	defer rows.Close()

	var result []*StoredRecord
	for rows.Next() {
		rec := &StoredRecord{}
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.IV, &rec.Ciphertext); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM forms WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count forms: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM forms`); err != nil {
		return fmt.Errorf("failed to clear forms: %w", err)
	}
	return nil
}
