package syncqueue

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
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

func (r *SQLiteRepository) Enqueue(ctx context.Context, task *models.SyncTask) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_queue (priority, kind, target_id, created_at) VALUES (?, ?, ?, ?)`,
		task.Priority, task.Kind, task.TargetID, task.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue sync task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.SyncTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, priority, kind, target_id, created_at FROM sync_queue ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncTask
	for rows.Next() {
		task := &models.SyncTask{}
		if err := rows.Scan(&task.ID, &task.Priority, &task.Kind, &task.TargetID, &task.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByPriority(ctx context.Context, priority int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE priority = ?`, priority).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync tasks: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync task: %w", err)
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("failed to clear sync queue: %w", err)
	}
	return nil
}
