// Package models holds the dev server's persistence models.
package models

// User is an enrolled account. Passwords are stored as PBKDF2 hashes with a
// per-user random salt.
type User struct {
	ID           string
	Username     string
	Salt         []byte
	PasswordHash []byte
}

// Submission is the server's copy of a synced record. The (FormID, LocalID)
// pair is the client-side identity and is unique; ID is server-assigned.
type Submission struct {
	ID        string         `json:"server_id"`
	LocalID   string         `json:"local_id"`
	FormID    string         `json:"form_id"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}
