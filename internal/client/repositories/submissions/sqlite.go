package submissions

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

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *StoredRecord) error {
	query := `INSERT INTO submissions (local_id, form_id, status, iv, ciphertext)
	        VALUES (?, ?, ?, ?, ?)
	        ON CONFLICT(local_id) DO UPDATE SET form_id = excluded.form_id,
	            status = excluded.status,
	            iv = excluded.iv,
	            ciphertext = excluded.ciphertext
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.LocalID, rec.FormID, rec.Status, rec.IV, rec.Ciphertext)
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID string) (*StoredRecord, error) {
	query := `SELECT local_id, form_id, status, iv, ciphertext FROM submissions WHERE local_id = ?`
	row := r.db.QueryRowContext(ctx, query, localID)

	rec := &StoredRecord{}
	err := row.Scan(&rec.LocalID, &rec.FormID, &rec.Status, &rec.IV, &rec.Ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

// rowid ordering keeps the pending queue in insertion order, which is the
// processing order the sync pass guarantees.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*StoredRecord, error) {
	query := `SELECT local_id, form_id, status, iv, ciphertext FROM submissions ORDER BY rowid`
	return r.selectRecords(ctx, query)
}

func (r *SQLiteRepository) GetAllByStatus(ctx context.Context, status string) ([]*StoredRecord, error) {
	query := `SELECT local_id, form_id, status, iv, ciphertext FROM submissions WHERE status = ? ORDER BY rowid`
	return r.selectRecords(ctx, query, status)
}

func (r *SQLiteRepository) GetAllByForm(ctx context.Context, formID string) ([]*StoredRecord, error) {
	query := `SELECT local_id, form_id, status, iv, ciphertext FROM submissions WHERE form_id = ? ORDER BY rowid`
	return r.selectRecords(ctx, query, formID)
}

func (r *SQLiteRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*StoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select submissions: %w", err)
	}
	defer rows.Close()

	var result []*StoredRecord
	for rows.Next() {
		rec := &StoredRecord{}
		if err := rows.Scan(&rec.LocalID, &rec.FormID, &rec.Status, &rec.IV, &rec.Ciphertext); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE status = ?`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("failed to clear submissions: %w", err)
	}
	return nil
}
