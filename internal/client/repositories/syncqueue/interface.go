// Package syncqueue stores prioritized sync bookkeeping entries. The queue
// holds no survey data, only references, so rows are kept in plaintext.
package syncqueue

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

type Repository interface {
	// Enqueue inserts a task and returns its auto-assigned id.
	Enqueue(ctx context.Context, task *models.SyncTask) (int64, error)

	// GetAll returns tasks ordered by priority (ascending), then insertion.
	GetAll(ctx context.Context) ([]*models.SyncTask, error)

	// CountByPriority returns the number of tasks with the given priority.
	CountByPriority(ctx context.Context, priority int) (int, error)

	// Delete removes one task by id.
	Delete(ctx context.Context, id int64) error

	// Clear removes every task.
	Clear(ctx context.Context) error
}
