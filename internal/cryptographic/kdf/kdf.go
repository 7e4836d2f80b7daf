// Package kdf turns a human passphrase and a per-room salt into the room's
// symmetric key.
//
// Derivation is deterministic: two clients that know the same passphrase and
// fetch the same room salt converge on the same key without any key exchange
// over the network. The iteration count is fixed and deliberately high so
// offline brute force stays expensive; it is not configurable per room.
package kdf

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Teachmetech/ChatSeal/internal/model"
)

const (
	// KeySize is the AES-256 key length produced by DeriveKey.
	KeySize = 32

	// SaltSize is the per-room salt length.
	SaltSize = 16

	// Iterations is the fixed PBKDF2 cost. Changing it changes every
	// derived key, so it is effectively part of the wire protocol.
	Iterations = 100_000
)

// Key is a room-scoped symmetric key. It lives only in client memory for the
// duration of one room session and is never persisted or transmitted.
type Key [KeySize]byte

// DeriveKey runs PBKDF2-SHA256 over the passphrase with the room salt.
// Identical inputs always yield an identical key.
func DeriveKey(passphrase string, salt []byte) (Key, error) {
	var key Key
	if len(salt) != SaltSize {
		return key, fmt.Errorf("kdf: salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	raw := pbkdf2.Key([]byte(passphrase), salt, Iterations, KeySize, sha256.New)
	if len(raw) != KeySize {
		return key, fmt.Errorf("kdf: derived %d bytes: %w", len(raw), model.ErrEnvironment)
	}
	copy(key[:], raw)
	for i := range raw {
		raw[i] = 0
	}
	return key, nil
}

// NewSalt generates a fresh room salt. Called once at room creation; the
// salt never changes afterward.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("kdf: read salt: %w", model.ErrEnvironment)
	}
	return salt, nil
}
