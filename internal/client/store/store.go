// Package store layers envelope encryption over the collection
// repositories. Records are serialized to JSON, sealed by the crypto
// provider, and written with their per-collection plaintext index fields.
// Reads reverse the process; batch reads have partial-failure semantics so
// one corrupt record cannot hide the rest of the data.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/forms"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/media"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/submissions"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/cryptox"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// DecryptError reports one record that failed to decrypt during a batch
// read. Callers must treat these as data loss, not retry: re-reading
// tampered ciphertext cannot succeed.
type DecryptError struct {
	Key string
	Err error
}

func (e DecryptError) Error() string {
	return fmt.Sprintf("record %s: %v", e.Key, e.Err)
}

func (e DecryptError) Unwrap() error { return e.Err }

// EncryptedStore wraps the collection repositories with the crypto provider.
type EncryptedStore struct {
	crypto *cryptox.Provider
	repos  *client.Repositories
}

func NewEncryptedStore(crypto *cryptox.Provider, repos *client.Repositories) *EncryptedStore {
	return &EncryptedStore{crypto: crypto, repos: repos}
}

// Metadata exposes the plaintext key-value collection (device id, sync
// bookkeeping). Metadata is not encrypted: the device id is an input to key
// derivation.
func (s *EncryptedStore) Metadata() metadata.Repository {
	return s.repos.Metadata
}

// Queue exposes the plaintext sync-task queue.
func (s *EncryptedStore) Queue() syncqueue.Repository {
	return s.repos.Queue
}

// --- submissions ---

// SaveSubmission encrypts and upserts a record, returning its local id.
// FormID and Status are copied to the plaintext index columns. A record
// saved as pending for the first time also gets a sync queue task.
func (s *EncryptedStore) SaveSubmission(ctx context.Context, rec *models.SubmissionRecord) (string, error) {
	env, err := s.seal(rec)
	if err != nil {
		return "", err
	}

	isNew, err := s.isNewSubmission(ctx, rec.LocalID)
	if err != nil {
		return "", err
	}

	// Record and its queue task land together or not at all.
	err = dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := submissions.NewSQLiteRepository(tx).Put(ctx, &submissions.StoredRecord{
			LocalID:    rec.LocalID,
			FormID:     rec.FormID,
			Status:     string(rec.Status),
			IV:         env.IV,
			Ciphertext: env.Ciphertext,
		})
		if err != nil {
			return err
		}
		if isNew && rec.Status == models.StatusPending {
			_, err = syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, &models.SyncTask{
				Priority:  models.PrioritySubmission,
				Kind:      models.TaskSubmission,
				TargetID:  rec.LocalID,
				CreatedAt: models.NowMillis(),
			})
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return rec.LocalID, nil
}

func (s *EncryptedStore) isNewSubmission(ctx context.Context, localID string) (bool, error) {
	_, err := s.repos.Submissions.Get(ctx, localID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// GetSubmission decrypts one record. ErrAuthenticationFailed propagates
// unchanged.
func (s *EncryptedStore) GetSubmission(ctx context.Context, localID string) (*models.SubmissionRecord, error) {
	stored, err := s.repos.Submissions.Get(ctx, localID)
	if err != nil {
		return nil, err
	}
	rec := &models.SubmissionRecord{}
	if err := s.open(stored.IV, stored.Ciphertext, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *EncryptedStore) GetAllSubmissions(ctx context.Context) ([]*models.SubmissionRecord, []DecryptError, error) {
	stored, err := s.repos.Submissions.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.decryptSubmissions(stored)
}

// GetSubmissionsByStatus returns decrypted records matching the status
// index, in insertion order.
func (s *EncryptedStore) GetSubmissionsByStatus(ctx context.Context, status models.SyncStatus) ([]*models.SubmissionRecord, []DecryptError, error) {
	stored, err := s.repos.Submissions.GetAllByStatus(ctx, string(status))
	if err != nil {
		return nil, nil, err
	}
	return s.decryptSubmissions(stored)
}

func (s *EncryptedStore) decryptSubmissions(stored []*submissions.StoredRecord) ([]*models.SubmissionRecord, []DecryptError, error) {
	result := make([]*models.SubmissionRecord, 0, len(stored))
	var failures []DecryptError
	for _, sr := range stored {
		rec := &models.SubmissionRecord{}
		if err := s.open(sr.IV, sr.Ciphertext, rec); err != nil {
			failures = append(failures, DecryptError{Key: sr.LocalID, Err: err})
			continue
		}
		result = append(result, rec)
	}
	return result, failures, nil
}

func (s *EncryptedStore) DeleteSubmission(ctx context.Context, localID string) error {
	return s.repos.Submissions.Delete(ctx, localID)
}

func (s *EncryptedStore) CountSubmissionsByStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	return s.repos.Submissions.CountByStatus(ctx, string(status))
}

// --- forms ---

func (s *EncryptedStore) SaveForm(ctx context.Context, form *models.Form) (string, error) {
	env, err := s.seal(form)
	if err != nil {
		return "", err
	}
	err = s.repos.Forms.Put(ctx, &forms.StoredRecord{
		ID:         form.ID,
		ProjectID:  form.ProjectID,
		IV:         env.IV,
		Ciphertext: env.Ciphertext,
	})
	if err != nil {
		return "", err
	}
	return form.ID, nil
}

func (s *EncryptedStore) GetForm(ctx context.Context, id string) (*models.Form, error) {
	stored, err := s.repos.Forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	form := &models.Form{}
	if err := s.open(stored.IV, stored.Ciphertext, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *EncryptedStore) GetFormsByProject(ctx context.Context, projectID string) ([]*models.Form, []DecryptError, error) {
	stored, err := s.repos.Forms.GetAllByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	result := make([]*models.Form, 0, len(stored))
	var failures []DecryptError
	for _, sr := range stored {
		form := &models.Form{}
		if err := s.open(sr.IV, sr.Ciphertext, form); err != nil {
			failures = append(failures, DecryptError{Key: sr.ID, Err: err})
			continue
		}
		result = append(result, form)
	}
	return result, failures, nil
}

func (s *EncryptedStore) DeleteForm(ctx context.Context, id string) error {
	return s.repos.Forms.Delete(ctx, id)
}

// --- media ---

// SaveMedia encrypts and upserts a blob. A blob saved as pending for the
// first time also gets a sync queue task.
func (s *EncryptedStore) SaveMedia(ctx context.Context, blob *models.MediaBlob) (string, error) {
	env, err := s.seal(blob)
	if err != nil {
		return "", err
	}

	isNew := false
	if _, err := s.repos.Media.Get(ctx, blob.ID); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return "", err
		}
		isNew = true
	}

	err = dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := media.NewSQLiteRepository(tx).Put(ctx, &media.StoredRecord{
			ID:           blob.ID,
			SubmissionID: blob.SubmissionID,
			Type:         blob.Type,
			IV:           env.IV,
			Ciphertext:   env.Ciphertext,
		})
		if err != nil {
			return err
		}
		if isNew && blob.UploadStatus == models.MediaPending {
			_, err = syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, &models.SyncTask{
				Priority:  models.PriorityMedia,
				Kind:      models.TaskMedia,
				TargetID:  blob.ID,
				CreatedAt: models.NowMillis(),
			})
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return blob.ID, nil
}

func (s *EncryptedStore) GetMedia(ctx context.Context, id string) (*models.MediaBlob, error) {
	stored, err := s.repos.Media.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	blob := &models.MediaBlob{}
	if err := s.open(stored.IV, stored.Ciphertext, blob); err != nil {
		return nil, err
	}
	return blob, nil
}

func (s *EncryptedStore) GetMediaBySubmission(ctx context.Context, submissionID string) ([]*models.MediaBlob, []DecryptError, error) {
	stored, err := s.repos.Media.GetAllBySubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	return s.decryptMedia(stored)
}

func (s *EncryptedStore) GetAllMedia(ctx context.Context) ([]*models.MediaBlob, []DecryptError, error) {
	stored, err := s.repos.Media.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.decryptMedia(stored)
}

func (s *EncryptedStore) decryptMedia(stored []*media.StoredRecord) ([]*models.MediaBlob, []DecryptError, error) {
	result := make([]*models.MediaBlob, 0, len(stored))
	var failures []DecryptError
	for _, sr := range stored {
		blob := &models.MediaBlob{}
		if err := s.open(sr.IV, sr.Ciphertext, blob); err != nil {
			failures = append(failures, DecryptError{Key: sr.ID, Err: err})
			continue
		}
		result = append(result, blob)
	}
	return result, failures, nil
}

func (s *EncryptedStore) DeleteMedia(ctx context.Context, id string) error {
	return s.repos.Media.Delete(ctx, id)
}

// --- wipe ---

// SecureWipe discards the key material first, then clears every collection
// including the ambient metadata. After it returns, previously stored
// ciphertext is unrecoverable on this device. This is the contract behind
// remote-wipe compliance.
func (s *EncryptedStore) SecureWipe(ctx context.Context) error {
	if err := s.crypto.ClearKey(); err != nil {
		return fmt.Errorf("failed to clear key: %w", err)
	}

	for name, clear := range map[string]func(context.Context) error{
		"submissions": s.repos.Submissions.Clear,
		"forms":       s.repos.Forms.Clear,
		"media":       s.repos.Media.Clear,
		"sync_queue":  s.repos.Queue.Clear,
		"metadata":    s.repos.Metadata.Clear,
	} {
		if err := clear(ctx); err != nil {
			return fmt.Errorf("failed to clear %s: %w", name, err)
		}
	}
	return nil
}

// --- envelope helpers ---

func (s *EncryptedStore) seal(v any) (*cryptox.Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}
	env, err := s.crypto.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (s *EncryptedStore) open(iv, ciphertext []byte, v any) error {
	plaintext, err := s.crypto.Decrypt(&cryptox.Envelope{IV: iv, Ciphertext: ciphertext})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to deserialize record: %w", err)
	}
	return nil
}
