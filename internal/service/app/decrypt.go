package app

import (
	"sync"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/envelope"
	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
	"github.com/Teachmetech/ChatSeal/internal/model"
)

// DecryptedPlaceholder is rendered in place of a message whose envelope
// could not be opened.
const DecryptedPlaceholder = "[Decryption Failed]"

// DecodedMessage is one message after client-side decryption. For file
// messages Text is the decrypted filename and URL points at the encrypted
// blob.
type DecodedMessage struct {
	ID       string
	Author   string
	Text     string
	IsFile   bool
	FileType string
	FileIV   []byte
	URL      string
	Failed   bool
}

// DecryptBatch opens every message independently and concurrently: each one
// carries its own iv, so order of work does not matter, and one corrupted
// message only fails itself. Results come back in the input order.
func DecryptBatch(key kdf.Key, messages []model.Message) []DecodedMessage {
	decoded := make([]DecodedMessage, len(messages))

	var wg sync.WaitGroup
	for i := range messages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decoded[i] = decryptOne(key, &messages[i])
		}(i)
	}
	wg.Wait()
	return decoded
}

func decryptOne(key kdf.Key, msg *model.Message) DecodedMessage {
	out := DecodedMessage{
		ID:     msg.ID,
		Author: msg.Author,
		IsFile: msg.IsFile,
		URL:    msg.URL,
	}
	if msg.File != nil {
		out.FileType = msg.File.Type
		out.FileIV = msg.File.IV
	}

	plaintext, err := envelope.Open(key, envelope.Envelope{Ciphertext: msg.Content, IV: msg.IV})
	if err != nil {
		out.Failed = true
		out.Text = DecryptedPlaceholder
		return out
	}
	out.Text = string(plaintext)
	return out
}
