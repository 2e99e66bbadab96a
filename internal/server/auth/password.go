package auth

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashIterations = 100_000
	hashSize       = 32
)

// HashPassword derives a storable hash from a password and a per-user salt.
func HashPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, hashIterations, hashSize, sha256.New)
}

// VerifyPassword compares in constant time.
func VerifyPassword(password string, salt, hash []byte) bool {
	return subtle.ConstantTimeCompare(HashPassword(password, salt), hash) == 1
}
