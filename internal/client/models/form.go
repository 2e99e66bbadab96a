package models

import "encoding/json"

// Form is a cached form definition, kept locally so capture keeps working
// offline. Schema is opaque to the sync engine; only the renderer interprets
// it. ProjectID is a plaintext index field.
type Form struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	Schema    json.RawMessage `json:"schema"`
	CachedAt  int64           `json:"cached_at"`
}

// MediaUploadStatus tracks whether a blob has reached remote storage.
type MediaUploadStatus string

const (
	MediaPending  MediaUploadStatus = "pending"
	MediaUploaded MediaUploadStatus = "uploaded"
)

// MediaBlob is a captured attachment (photo, audio, signature) belonging to
// a submission. Content is encrypted at rest with the rest of the record;
// SubmissionID and Type are plaintext index fields. UploadURL is supplied by
// the host environment once the parent submission has synced.
type MediaBlob struct {
	ID           string            `json:"id"`
	SubmissionID string            `json:"submission_id"`
	Type         string            `json:"type"`
	FileName     string            `json:"file_name"`
	Content      []byte            `json:"content"`
	UploadStatus MediaUploadStatus `json:"upload_status"`
	UploadURL    string            `json:"upload_url,omitempty"`
	CreatedAt    int64             `json:"created_at"`
}

// SyncTask is a prioritized entry in the sync queue collection. Lower
// Priority values are drained first.
type SyncTask struct {
	ID        int64  `json:"id"`
	Priority  int    `json:"priority"`
	Kind      string `json:"kind"`
	TargetID  string `json:"target_id"`
	CreatedAt int64  `json:"created_at"`
}

// Sync task kinds.
const (
	TaskSubmission = "submission"
	TaskMedia      = "media"
)

// Default priorities: submissions drain before their media.
const (
	PrioritySubmission = 1
	PriorityMedia      = 2
)
