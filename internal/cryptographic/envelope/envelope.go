// Package envelope encrypts and decrypts single buffers under a room key.
//
// One Seal call produces one Envelope: AES-256-GCM ciphertext (tag included)
// plus the fresh random 12-byte iv it was sealed with. Per-call iv freshness
// is what lets many independently encrypted messages share one room-scoped
// key; reusing an iv under the same key breaks GCM confidentiality outright,
// so ivs are always random, never counters.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
	"github.com/Teachmetech/ChatSeal/internal/model"
)

// IVSize is the AES-GCM nonce length.
const IVSize = 12

// Envelope is the (ciphertext, iv) pair produced by one Seal call. The
// server stores both verbatim as opaque bytes.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
}

// Seal encrypts plaintext under key with a fresh random iv. Two calls with
// identical inputs produce different envelopes.
func Seal(key kdf.Key, plaintext []byte) (Envelope, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return Envelope{}, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("envelope: read iv: %w", model.ErrEnvironment)
	}

	return Envelope{
		Ciphertext: aead.Seal(nil, iv, plaintext, nil),
		IV:         iv,
	}, nil
}

// Open decrypts an envelope. It fails with ErrDecryptFailed when the
// authentication tag does not verify (wrong key, corrupted ciphertext, or iv
// mismatch) and never returns partial plaintext.
func Open(key kdf.Key, env Envelope) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(env.IV) != IVSize {
		return nil, fmt.Errorf("envelope: iv is %d bytes: %w", len(env.IV), model.ErrDecryptFailed)
	}

	plaintext, err := aead.Open(nil, env.IV, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", model.ErrDecryptFailed)
	}
	return plaintext, nil
}

func newAEAD(key kdf.Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("envelope: aes.NewCipher: %w", model.ErrEnvironment)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: cipher.NewGCM: %w", model.ErrEnvironment)
	}
	return aead, nil
}
