// Package client provides local database initialization and the API client
// the sync engine talks to. The remote surface is deliberately small: a
// login, a reachability probe, a conflict/existence check, and submission
// create.
package client

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Client is the remote API consumed by the sync engine.
type Client interface {
	// Login authenticates and returns an access token. The engine itself
	// never stores credentials; the token is held by the client.
	Login(ctx context.Context, username, password string) (string, error)

	// Ping probes server reachability (used by the online watcher).
	Ping(ctx context.Context) error

	// CheckSubmission returns the server's version of the record for the
	// (formID, localID) pair, or nil when the server has none.
	CheckSubmission(ctx context.Context, formID, localID string) (*models.SubmissionRecord, error)

	// CreateSubmission uploads a record and returns the server-assigned id.
	// A version conflict surfaces as *ConflictError (matching
	// common.ErrServerConflict) carrying the server's current record.
	CreateSubmission(ctx context.Context, rec *models.SubmissionRecord) (string, error)

	Close() error
}
