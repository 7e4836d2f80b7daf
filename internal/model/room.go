package model

import "time"

type (
	// Room is a time-boxed, optionally passphrase-protected chat namespace.
	// Metadata only: message content never appears here.
	Room struct {
		ID                 string    `bson:"_id" json:"id"`
		Name               string    `bson:"name,omitempty" json:"name,omitempty"`
		PassphraseRequired bool      `bson:"passphraseRequired" json:"passphraseRequired"`
		ExpiresAt          time.Time `bson:"expiresAt" json:"expiresAt"`
		// Salt is present iff PassphraseRequired. Generated once at creation
		// and immutable afterward: it is the sole binding between a
		// passphrase and the room key.
		Salt      []byte    `bson:"salt,omitempty" json:"salt,omitempty"`
		CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	}
)

// Expired reports whether the room is past its lifetime at the given instant.
// Readers never trust the background sweep; they compare against the record
// directly, so the sweep is a cleanup optimization, not a correctness
// dependency.
func (r *Room) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
