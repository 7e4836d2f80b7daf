package app

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/envelope"
	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
	"github.com/Teachmetech/ChatSeal/internal/model"
)

func TestDecryptBatchIsolatedFailure(t *testing.T) {
	salt := bytes.Repeat([]byte{0x09}, kdf.SaltSize)
	key, err := kdf.DeriveKey("batch", salt)
	if err != nil {
		t.Fatal(err)
	}

	var messages []model.Message
	for i := 0; i < 6; i++ {
		env, err := envelope.Seal(key, []byte(fmt.Sprintf("message %d", i)))
		if err != nil {
			t.Fatal(err)
		}
		messages = append(messages, model.Message{
			ID:      fmt.Sprintf("m%d", i),
			Author:  "alice",
			Content: env.Ciphertext,
			IV:      env.IV,
		})
	}

	// Corrupt the iv of the fourth message only.
	messages[3].IV[0] ^= 0xff

	decoded := DecryptBatch(key, messages)
	if len(decoded) != 6 {
		t.Fatalf("expected 6 results, got %d", len(decoded))
	}

	for i, d := range decoded {
		if i == 3 {
			if !d.Failed || d.Text != DecryptedPlaceholder {
				t.Fatalf("corrupted message should render the placeholder, got %+v", d)
			}
			continue
		}
		if d.Failed {
			t.Fatalf("message %d should decrypt cleanly: %+v", i, d)
		}
		if want := fmt.Sprintf("message %d", i); d.Text != want {
			t.Fatalf("message %d out of order: got %q want %q", i, d.Text, want)
		}
	}
}

func TestDecryptBatchWrongKeyFailsAll(t *testing.T) {
	salt := bytes.Repeat([]byte{0x09}, kdf.SaltSize)
	key, _ := kdf.DeriveKey("right", salt)
	wrong, _ := kdf.DeriveKey("wrong", salt)

	env, err := envelope.Seal(key, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	decoded := DecryptBatch(wrong, []model.Message{{Content: env.Ciphertext, IV: env.IV}})
	if !decoded[0].Failed {
		t.Fatal("wrong key must fail decryption")
	}
}
