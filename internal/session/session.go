// Package session holds the client-side key lifecycle state for one open
// room view.
//
// A Room session is constructed when the user enters a room and torn down
// when they leave; the derived key never outlives it and is never persisted.
// The passphrase itself may be remembered across rooms (keyed by room id) to
// avoid re-prompting, but the key is always re-derived on entry.
package session

import (
	"sync"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
)

// Room is the key state for a single open chat-room view. At most one key is
// active at a time; the zero state is "no key".
type Room struct {
	roomID string

	mu     sync.Mutex
	key    kdf.Key
	hasKey bool
}

// NewRoom starts a session for one room view. No key is active yet.
func NewRoom(roomID string) *Room {
	return &Room{roomID: roomID}
}

// RoomID returns the room this session is scoped to.
func (r *Room) RoomID() string {
	return r.roomID
}

// Key returns the active key, if any.
func (r *Room) Key() (kdf.Key, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key, r.hasKey
}

// SetKey installs the derived key for this session.
func (r *Room) SetKey(key kdf.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = key
	r.hasKey = true
}

// ClearKey drops the active key. Idempotent; safe to call at any time, e.g.
// on decryption failure to force re-authentication.
func (r *Room) ClearKey() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = kdf.Key{}
	r.hasKey = false
}

// PassphraseCache remembers passphrases by room id so re-entering a room
// does not re-prompt. Derived keys are never cached here: only the
// passphrase, which is re-run through the KDF on every entry.
type PassphraseCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewPassphraseCache() *PassphraseCache {
	return &PassphraseCache{entries: make(map[string]string)}
}

func (c *PassphraseCache) Remember(roomID, passphrase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[roomID] = passphrase
}

func (c *PassphraseCache) Lookup(roomID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[roomID]
	return p, ok
}

func (c *PassphraseCache) Forget(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, roomID)
}
