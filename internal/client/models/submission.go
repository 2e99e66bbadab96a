// Package models defines client-side data models: queued submissions,
// cached forms, media blobs and the conflict envelope used during sync.
package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the lifecycle state of a locally captured submission.
type SyncStatus string

const (
	StatusPending  SyncStatus = "pending"
	StatusSyncing  SyncStatus = "syncing"
	StatusSynced   SyncStatus = "synced"
	StatusFailed   SyncStatus = "failed"
	StatusConflict SyncStatus = "conflict"
)

// FormData is the open mapping of field id to response value. Form schemas
// are user-defined at runtime, so values are one of string, number, bool,
// list or nil as produced by JSON decoding.
type FormData map[string]any

// SubmissionRecord is one captured survey response queued for sync.
//
// LocalID is client-generated and immutable; ServerID is empty until the
// server accepts the record. Timestamps are epoch milliseconds and drive
// conflict recency comparison. The whole record is what gets encrypted at
// rest; FormID and Status double as plaintext index fields.
type SubmissionRecord struct {
	LocalID      string     `json:"local_id"`
	ServerID     string     `json:"server_id,omitempty"`
	FormID       string     `json:"form_id"`
	Data         FormData   `json:"data"`
	Status       SyncStatus `json:"status"`
	CreatedAt    int64      `json:"created_at"`
	UpdatedAt    int64      `json:"updated_at"`
	SyncAttempts int        `json:"sync_attempts"`
}

// NewSubmission creates a pending record with a fresh local id.
func NewSubmission(formID string, data FormData) *SubmissionRecord {
	now := NowMillis()
	return &SubmissionRecord{
		LocalID:   uuid.NewString(),
		FormID:    formID,
		Data:      data,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ConflictRecord pairs the local record with the server's version at
// detection time. It exists from detection until a resolution strategy other
// than manual is applied, or until the caller supplies a resolved payload.
type ConflictRecord struct {
	Local      *SubmissionRecord `json:"local"`
	Server     *SubmissionRecord `json:"server"`
	DiffFields []string          `json:"diff_fields"`
	DetectedAt int64             `json:"detected_at"`
}

// DiffFields returns the sorted set of field ids whose local and server
// values differ. Equality is structural (compared via canonical JSON), not
// semantic.
func DiffFields(local, server FormData) []string {
	keys := make(map[string]struct{}, len(local)+len(server))
	for k := range local {
		keys[k] = struct{}{}
	}
	for k := range server {
		keys[k] = struct{}{}
	}

	var diff []string
	for k := range keys {
		lv, lok := local[k]
		sv, sok := server[k]
		if lok != sok || !jsonEqual(lv, sv) {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}

// MergeData overlays every field of overlay onto a copy of base. Used by the
// merge strategy: the record with the later timestamp supplies its fields
// into the other's payload. Recency is decided per whole record, not per
// field; field-level timestamps are not tracked.
func MergeData(base, overlay FormData) FormData {
	merged := make(FormData, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
