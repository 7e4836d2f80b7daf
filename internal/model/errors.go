package model

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotAvailable covers both a room id that never existed and a
	// room past its expiry. Callers cannot tell the two apart; either way
	// the client is redirected to the re-join flow.
	ErrRoomNotAvailable = errors.New("room does not exist or has expired")

	// ErrEnvironment means a cryptographic primitive failed or is
	// unavailable. There is no fallback key; the operation is aborted.
	ErrEnvironment = errors.New("cryptographic environment unavailable")

	// ErrDecryptFailed means the authentication tag did not verify: wrong
	// key, corrupted ciphertext, or iv mismatch. Retrying cannot help.
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrNotAuthorized is returned when an operation requires a verified
	// actor identity that the caller does not hold.
	ErrNotAuthorized = errors.New("not authorized")
)

// BlobError records a failed blob-store operation. Upload failures abort the
// enclosing send; delete failures during cleanup are collected into a
// CleanupReport and never abort the sweep.
type BlobError struct {
	Op     string // "upload", "delete", "retrieve"
	BlobID string
	Err    error
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("blob %s %s: %v", e.Op, e.BlobID, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

// MessageError records a failed message-record deletion during cleanup.
// Unlike blob failures these are not tolerated by the sweep: the room record
// must outlive its messages, so the room is kept for a retry.
type MessageError struct {
	MessageID string
	Err       error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message delete %s: %v", e.MessageID, e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}
