package session

import (
	"bytes"
	"testing"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
)

func TestRoomKeyLifecycle(t *testing.T) {
	r := NewRoom("room-1")

	if _, ok := r.Key(); ok {
		t.Fatal("fresh session should have no key")
	}

	salt := bytes.Repeat([]byte{0x05}, kdf.SaltSize)
	key, err := kdf.DeriveKey("pass", salt)
	if err != nil {
		t.Fatal(err)
	}

	r.SetKey(key)
	got, ok := r.Key()
	if !ok || got != key {
		t.Fatal("expected the installed key back")
	}

	r.ClearKey()
	if _, ok := r.Key(); ok {
		t.Fatal("key should be gone after ClearKey")
	}
}

func TestClearKeyIdempotent(t *testing.T) {
	r := NewRoom("room-1")
	r.ClearKey()
	r.ClearKey()
	if _, ok := r.Key(); ok {
		t.Fatal("key should be absent")
	}
}

func TestPassphraseCache(t *testing.T) {
	c := NewPassphraseCache()

	if _, ok := c.Lookup("room-1"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Remember("room-1", "hunter2")
	p, ok := c.Lookup("room-1")
	if !ok || p != "hunter2" {
		t.Fatalf("expected cached passphrase, got %q %v", p, ok)
	}

	if _, ok := c.Lookup("room-2"); ok {
		t.Fatal("cache must be scoped by room id")
	}

	c.Forget("room-1")
	if _, ok := c.Lookup("room-1"); ok {
		t.Fatal("expected miss after Forget")
	}
}
