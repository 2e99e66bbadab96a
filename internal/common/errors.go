// Package common defines shared constants and sentinel errors used across
// client and server layers of FieldSync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Crypto provider errors.
	ErrCryptoUnavailable    = errors.New("crypto primitives unavailable")
	ErrNotInitialized       = errors.New("crypto provider not initialized")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Storage errors.
	ErrNotFound              = errors.New("not found")
	ErrIO                    = errors.New("storage i/o error")
	ErrSchemaVersionMismatch = errors.New("schema version mismatch")

	// Transport errors. ErrNetwork marks transient transport failures that
	// are eligible for retry on the next sync pass; ErrTimeout is surfaced
	// separately so callers can distinguish slow links from dead ones.
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("request timed out")

	// Server responses. ErrServerConflict is not a failure: it routes the
	// record into conflict resolution. ErrServerRejected is definitive and
	// moves the record to the failed state.
	ErrServerConflict = errors.New("server version conflict")
	ErrServerRejected = errors.New("server rejected submission")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)
