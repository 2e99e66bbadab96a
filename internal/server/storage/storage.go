// Package storage provides the dev server's persistence layer: a repository
// interface with an in-memory implementation for tests and quick starts, and
// a Postgres implementation selected by DSN.
package storage

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

// Repository is the storage surface the HTTP handlers depend on.
type Repository interface {
	// CreateUser stores a new account. Usernames are unique.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByName returns the account, or common.ErrNotFound.
	GetUserByName(ctx context.Context, username string) (*models.User, error)

	// CreateSubmission stores a new record under its server id.
	CreateSubmission(ctx context.Context, sub *models.Submission) error

	// GetSubmission looks a record up by its client identity, or
	// common.ErrNotFound.
	GetSubmission(ctx context.Context, formID, localID string) (*models.Submission, error)

	Close() error
}

// New selects an implementation by DSN: empty means in-memory, anything else
// is treated as a Postgres connection string.
func New(ctx context.Context, dsn string) (Repository, error) {
	if dsn == "" {
		return NewMemory(), nil
	}
	return NewPostgres(ctx, dsn)
}
