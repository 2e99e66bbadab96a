// Package media stores encrypted media blobs captured alongside
// submissions. submission_id and type stay in plaintext as query indices.
package media

import "context"

// StoredRecord is the encrypted envelope persisted per media blob.
type StoredRecord struct {
	ID           string
	SubmissionID string
	Type         string
	IV           []byte
	Ciphertext   []byte
}

type Repository interface {
	Put(ctx context.Context, rec *StoredRecord) error
	Get(ctx context.Context, id string) (*StoredRecord, error)
	GetAll(ctx context.Context) ([]*StoredRecord, error)
	GetAllBySubmission(ctx context.Context, submissionID string) ([]*StoredRecord, error)
	GetAllByType(ctx context.Context, mediaType string) ([]*StoredRecord, error)
	CountBySubmission(ctx context.Context, submissionID string) (int, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
