package envelope

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
	"github.com/Teachmetech/ChatSeal/internal/model"
)

func testKey(t *testing.T, passphrase string) kdf.Key {
	t.Helper()
	salt := bytes.Repeat([]byte{0x24}, kdf.SaltSize)
	key, err := kdf.DeriveKey(passphrase, salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	return key
}

func TestIndependentlyDerivedKeysInterop(t *testing.T) {
	// Two clients deriving from the same passphrase and salt must be able
	// to read each other's envelopes.
	k1 := testKey(t, "shared secret")
	k2 := testKey(t, "shared secret")

	env, err := Seal(k1, []byte("from the first client"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := Open(k2, env)
	if err != nil {
		t.Fatalf("Open with independently derived key: %v", err)
	}
	if string(got) != "from the first client" {
		t.Fatalf("unexpected plaintext %q", got)
	}
}

func TestSealOpenRoundtrip(t *testing.T) {
	key := testKey(t, "correct horse battery staple")
	plaintext := []byte("hello, sealed room")

	env, err := Seal(key, plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(env.IV) != IVSize {
		t.Fatalf("iv length = %d, want %d", len(env.IV), IVSize)
	}

	got, err := Open(key, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("expected %q got %q", plaintext, got)
	}
}

func TestSealEmptyPlaintext(t *testing.T) {
	key := testKey(t, "p")

	env, err := Seal(key, nil)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := Open(key, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty plaintext, got %q", got)
	}
}

func TestOpenWrongKey(t *testing.T) {
	k1 := testKey(t, "one")
	k2 := testKey(t, "two")

	env, err := Seal(k1, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Open(k2, env)
	if !errors.Is(err, model.ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestOpenCorruptedCiphertext(t *testing.T) {
	key := testKey(t, "p")
	env, err := Seal(key, []byte("intact"))
	if err != nil {
		t.Fatal(err)
	}

	env.Ciphertext[0] ^= 0xff
	if _, err := Open(key, env); !errors.Is(err, model.ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestOpenMismatchedIV(t *testing.T) {
	key := testKey(t, "p")
	env, err := Seal(key, []byte("intact"))
	if err != nil {
		t.Fatal(err)
	}

	env.IV[0] ^= 0xff
	if _, err := Open(key, env); !errors.Is(err, model.ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestOpenShortIV(t *testing.T) {
	key := testKey(t, "p")
	env, err := Seal(key, []byte("intact"))
	if err != nil {
		t.Fatal(err)
	}

	env.IV = env.IV[:IVSize-1]
	if _, err := Open(key, env); !errors.Is(err, model.ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestIVUniqueness(t *testing.T) {
	key := testKey(t, "p")
	plaintext := []byte("same plaintext every time")

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		env, err := Seal(key, plaintext)
		if err != nil {
			t.Fatalf("Seal #%d: %v", i, err)
		}
		iv := string(env.IV)
		if seen[iv] {
			t.Fatalf("iv reused on call #%d", i)
		}
		seen[iv] = true
	}
}

func TestSealProducesDifferentCiphertexts(t *testing.T) {
	key := testKey(t, "p")
	plaintext := []byte("same plaintext")

	e1, err := Seal(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := Seal(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(e1.Ciphertext, e2.Ciphertext) {
		t.Fatal("two seals of the same plaintext produced identical ciphertexts")
	}
}
