// Package metadata is the ambient key-value collection for device and
// session metadata. The device identifier lives here in plaintext: it is an
// input to key derivation and therefore cannot itself be encrypted under
// the derived key.
package metadata

import "context"

// Well-known metadata keys.
const (
	KeyDeviceID     = "device_id"
	KeyLastSyncAt   = "last_sync_at"
	KeyEnrolledUser = "enrolled_user"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
