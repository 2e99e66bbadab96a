// Package cryptox implements the device encryption provider: PBKDF2 key
// derivation over the (user, device) pair, AES-GCM envelope encryption, and
// persistence of the derived key so sessions can resume without re-deriving.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// kdfSaltV1 is the fixed salt for key derivation version 1. A per-user
	// random salt would resist pre-computation better, but changing salt
	// semantics breaks key compatibility with already-encrypted records, so
	// any change must arrive as a new versioned constant.
	kdfSaltV1 = "fieldsync.kdf.v1"

	kdfIterations = 100_000
	keySize       = 32 // AES-256
	nonceSize     = 12 // 96-bit GCM nonce
)

// Envelope is the AEAD output for one record: a fresh per-write nonce plus
// ciphertext with the GCM tag appended.
type Envelope struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// Provider derives and holds the per-device symmetric key and performs
// envelope encryption. It is not safe for concurrent use; the sync engine's
// single-pass guard is the only caller-side serialization.
type Provider struct {
	keyPath string
	key     []byte
	aead    cipher.AEAD
}

// NewProvider returns a Provider that persists its key at keyPath.
func NewProvider(keyPath string) *Provider {
	return &Provider{keyPath: keyPath}
}

// DeriveKey derives the device key from the (userID, deviceID) pair using
// PBKDF2-SHA256 with the fixed versioned salt. Deterministic: the same pair
// always reaches the same key, which is what makes key recovery possible
// without a server round trip.
func DeriveKey(userID, deviceID string) []byte {
	secret := fmt.Sprintf("%s:%s", userID, deviceID)
	return pbkdf2.Key([]byte(secret), []byte(kdfSaltV1), kdfIterations, keySize, sha256.New)
}

// Initialize loads the persisted key if one exists, otherwise derives a new
// key from the credential pair and persists it. Must be called before
// Encrypt or Decrypt.
func (p *Provider) Initialize(userID, deviceID string) error {
	key, err := os.ReadFile(p.keyPath)
	switch {
	case err == nil:
		if len(key) != keySize {
			return fmt.Errorf("key file %s has %d bytes: %w", p.keyPath, len(key), common.ErrCryptoUnavailable)
		}
	case errors.Is(err, os.ErrNotExist):
		key = DeriveKey(userID, deviceID)
		if err := os.WriteFile(p.keyPath, key, 0o600); err != nil {
			return fmt.Errorf("failed to persist key: %w", err)
		}
	default:
		return fmt.Errorf("failed to read key file: %w", err)
	}

	return p.install(key)
}

func (p *Provider) install(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	p.key = key
	p.aead = aead
	return nil
}

// Initialized reports whether the provider holds a usable key.
func (p *Provider) Initialized() bool {
	return p.aead != nil
}

// Encrypt seals plaintext under the device key with a fresh random nonce.
func (p *Provider) Encrypt(plaintext []byte) (*Envelope, error) {
	if p.aead == nil {
		return nil, common.ErrNotInitialized
	}

	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Envelope{IV: iv, Ciphertext: p.aead.Seal(nil, iv, plaintext, nil)}, nil
}

// Decrypt opens an envelope. A GCM tag mismatch (tampered ciphertext, or the
// wrong key) surfaces as ErrAuthenticationFailed; by contract this is
// indistinguishable from plain data corruption.
func (p *Provider) Decrypt(env *Envelope) ([]byte, error) {
	if p.aead == nil {
		return nil, common.ErrNotInitialized
	}
	if len(env.IV) != nonceSize {
		return nil, common.ErrAuthenticationFailed
	}

	plaintext, err := p.aead.Open(nil, env.IV, env.Ciphertext, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// ClearKey irreversibly discards the in-memory and persisted key material.
// Every record encrypted under the key becomes permanently unreadable on
// this device; this is the erasure guarantee behind secure wipe.
func (p *Provider) ClearKey() error {
	common.WipeByteArray(p.key)
	p.key = nil
	p.aead = nil

	if err := os.Remove(p.keyPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove key file: %w", err)
	}
	return nil
}
