package submissions

import "context"

// StoredRecord is the encrypted envelope persisted per submission: the
// primary key, a fresh per-write nonce, the AEAD ciphertext of the record,
// and the plaintext index fields needed for equality queries. Anything kept
// as an index field is deliberately not protected by encryption.
type StoredRecord struct {
	LocalID    string
	FormID     string
	Status     string
	IV         []byte
	Ciphertext []byte
}

// Repository describes storage operations for the submission queue
// collection. Implementations are backed by the local SQLite database.
type Repository interface {
	// Put inserts a new envelope or replaces an existing one by LocalID.
	Put(ctx context.Context, rec *StoredRecord) error

	// Get returns one envelope by LocalID, or common.ErrNotFound.
	Get(ctx context.Context, localID string) (*StoredRecord, error)

	// GetAll returns every envelope in insertion order.
	GetAll(ctx context.Context) ([]*StoredRecord, error)

	// GetAllByStatus returns envelopes matching the status index, in
	// insertion order.
	GetAllByStatus(ctx context.Context, status string) ([]*StoredRecord, error)

	// GetAllByForm returns envelopes matching the form index.
	GetAllByForm(ctx context.Context, formID string) ([]*StoredRecord, error)

	// CountByStatus returns the number of envelopes with the given status.
	CountByStatus(ctx context.Context, status string) (int, error)

	// Delete removes one envelope by LocalID.
	Delete(ctx context.Context, localID string) error

	// Clear removes every envelope in the collection.
	Clear(ctx context.Context) error
}
