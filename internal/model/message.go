package model

import "time"

type (
	// FileRef points a file message at its encrypted blob. The blob body and
	// the filename in Message.Content are encrypted separately, so the blob
	// carries its own IV. MIME type stays plaintext as a rendering hint.
	FileRef struct {
		StorageID string `bson:"storageId" json:"storageId"`
		IV        []byte `bson:"iv" json:"iv"`
		Type      string `bson:"type" json:"type"`
	}

	// Message is one encrypted chat entry. Content is opaque ciphertext:
	// either encrypted text or, for file messages, the encrypted filename.
	// The server stores it verbatim and never holds a key.
	Message struct {
		ID     string `bson:"_id" json:"id"`
		RoomID string `bson:"roomId" json:"roomId"`
		Author string `bson:"author" json:"author"`

		Content []byte `bson:"content" json:"content"`
		IV      []byte `bson:"iv" json:"iv"`

		IsFile bool     `bson:"isFile" json:"isFile"`
		File   *FileRef `bson:"file,omitempty" json:"file,omitempty"`

		SentAt time.Time `bson:"sentAt" json:"sentAt"`

		// URL is the blob retrieval location, resolved at listing time for
		// file messages. Empty when resolution failed; never persisted.
		URL string `bson:"-" json:"url,omitempty"`
	}
)
