package media

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
	query := `INSERT INTO media (id, submission_id, type, iv, ciphertext)
	        VALUES (?, ?, ?, ?, ?)
	        ON CONFLICT(id) DO UPDATE SET submission_id = excluded.submission_id,
	            type = excluded.type,
	            iv = excluded.iv,
	            ciphertext = excluded.ciphertext
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SubmissionID, rec.Type, rec.IV, rec.Ciphertext)
	if err != nil {
		return fmt.Errorf("failed to upsert media blob: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*StoredRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, submission_id, type, iv, ciphertext FROM media WHERE id = ?`, id)

	rec := &StoredRecord{}
	err := row.Scan(&rec.ID, &rec.SubmissionID, &rec.Type, &rec.IV, &rec.Ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*StoredRecord, error) {
	return r.selectRecords(ctx,
		`SELECT id, submission_id, type, iv, ciphertext FROM media ORDER BY rowid`)
}

func (r *SQLiteRepository) GetAllBySubmission(ctx context.Context, submissionID string) ([]*StoredRecord, error) {
	return r.selectRecords(ctx,
		`SELECT id, submission_id, type, iv, ciphertext FROM media WHERE submission_id = ? ORDER BY rowid`,
		submissionID)
}

func (r *SQLiteRepository) GetAllByType(ctx context.Context, mediaType string) ([]*StoredRecord, error) {
	return r.selectRecords(ctx,
		`SELECT id, submission_id, type, iv, ciphertext FROM media WHERE type = ? ORDER BY rowid`,
		mediaType)
}

func (r *SQLiteRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*StoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select media blobs: %w", err)
	}
	defer rows.Close()

	var result []*StoredRecord
	for rows.Next() {
		rec := &StoredRecord{}
		if err := rows.Scan(&rec.ID, &rec.SubmissionID, &rec.Type, &rec.IV, &rec.Ciphertext); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountBySubmission(ctx context.Context, submissionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE submission_id = ?`, submissionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count media blobs: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media blob: %w", err)
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM media`); err != nil {
		return fmt.Errorf("failed to clear media blobs: %w", err)
	}
	return nil
}
