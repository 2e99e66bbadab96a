// Package forms stores the encrypted form-definition cache. Cached forms
// keep capture working while offline; project_id stays in plaintext as the
// query index.
package forms

import "context"

// StoredRecord is the encrypted envelope persisted per cached form.
type StoredRecord struct {
	ID         string
	ProjectID  string
	IV         []byte
	Ciphertext []byte
}

type Repository interface {
	Put(ctx context.Context, rec *StoredRecord) error
	Get(ctx context.Context, id string) (*StoredRecord, error)
	GetAll(ctx context.Context) ([]*StoredRecord, error)
	GetAllByProject(ctx context.Context, projectID string) ([]*StoredRecord, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
