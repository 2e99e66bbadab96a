package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/netx"
)

// SyncMedia uploads every pending media blob to its assigned upload URL and
// marks it uploaded. Blobs without a URL yet are skipped; upload failures
// leave the blob pending for the next pass. Returns the number of blobs
// uploaded and the first error encountered, if any.
func (e *Engine) SyncMedia(ctx context.Context) (int, error) {
	if !e.online.Load() {
		return 0, nil
	}

	blobs, decErrs, err := e.store.GetAllMedia(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load media blobs: %w", err)
	}
	for _, derr := range decErrs {
		e.log.Error(ctx, "media blob unreadable", "id", derr.Key, "error", derr.Err)
	}

	uploaded := 0
	var firstErr error
	for _, blob := range blobs {
		if blob.UploadStatus != models.MediaPending || blob.UploadURL == "" {
			continue
		}
		if err := netx.UploadPresigned(ctx, blob.UploadURL, blob.Content, blob.Type); err != nil {
			e.log.Warn(ctx, "media upload failed", "id", blob.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		blob.UploadStatus = models.MediaUploaded
		if _, err := e.store.SaveMedia(ctx, blob); err != nil {
			e.log.Error(ctx, "failed to persist media upload state", "id", blob.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.dropTask(ctx, models.TaskMedia, blob.ID)
		uploaded++
	}
	return uploaded, firstErr
}
