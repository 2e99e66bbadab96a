package client

import (
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

// ConflictError is returned by CreateSubmission when the server already
// holds a diverged version of the record. It matches
// common.ErrServerConflict via errors.Is and carries the server's current
// record so resolution can proceed without another round trip.
type ConflictError struct {
	Server *models.SubmissionRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("server holds conflicting version of %s/%s",
		e.Server.FormID, e.Server.LocalID)
}

func (e *ConflictError) Unwrap() error {
	return common.ErrServerConflict
}
