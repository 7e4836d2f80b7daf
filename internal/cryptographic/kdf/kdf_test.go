package kdf

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)

	k1, err := DeriveKey("shared passphrase", salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, err := DeriveKey("shared passphrase", salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}

	if k1 != k2 {
		t.Fatal("same passphrase and salt derived different keys")
	}
}

func TestDeriveKeyDistinctInputs(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)
	otherSalt := bytes.Repeat([]byte{0x02}, SaltSize)

	base, _ := DeriveKey("passphrase", salt)
	otherPass, _ := DeriveKey("Passphrase", salt)
	otherSaltKey, _ := DeriveKey("passphrase", otherSalt)

	if base == otherPass {
		t.Fatal("different passphrases derived the same key")
	}
	if base == otherSaltKey {
		t.Fatal("different salts derived the same key")
	}
}

func TestDeriveKeyEmptyPassphrase(t *testing.T) {
	salt := bytes.Repeat([]byte{0x03}, SaltSize)
	if _, err := DeriveKey("", salt); err != nil {
		t.Fatalf("empty passphrase should derive a key: %v", err)
	}
}

func TestDeriveKeyBadSalt(t *testing.T) {
	if _, err := DeriveKey("p", []byte("short")); err == nil {
		t.Fatal("expected error for undersized salt")
	}
	if _, err := DeriveKey("p", nil); err == nil {
		t.Fatal("expected error for nil salt")
	}
}

func TestNewSalt(t *testing.T) {
	s1, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	if len(s1) != SaltSize {
		t.Fatalf("salt length = %d, want %d", len(s1), SaltSize)
	}

	s2, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(s1, s2) {
		t.Fatal("two salts were identical")
	}
}
