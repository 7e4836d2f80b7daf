// Package presence tracks which participants are currently connected to a
// room. It is deliberately thin: the chat path never blocks on it, and a
// presence outage degrades the roster, not messaging.
//
// A Client can only be built for a verified identity. There are no
// placeholder sessions; a room view without an authenticated identity is
// simply not connected to presence yet.
package presence

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Teachmetech/ChatSeal/internal/model"
)

type (
	// Store is the sorted-set surface presence needs. Members are scored
	// by their heartbeat deadline in unix milliseconds.
	Store interface {
		ZAdd(ctx context.Context, key string, score float64, member string) error
		ZRem(ctx context.Context, key, member string) error
		ZRangeByScore(ctx context.Context, key, min, max string) ([]string, error)
		ZRemRangeByScore(ctx context.Context, key, min, max string) error
		Expire(ctx context.Context, key string, ttl time.Duration) error
	}

	// Tokens are opaque handles returned by Heartbeat. Clients pass them
	// back verbatim and must not parse or construct them.
	Tokens struct {
		RoomToken    string `json:"roomToken"`
		SessionToken string `json:"sessionToken"`
	}

	// Entry is one connected participant.
	Entry struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}

	Client struct {
		identity string
		store    Store
		now      func() time.Time
	}
)

// NewClient builds a presence handle for a verified identity. An empty
// identity is rejected outright; callers that are still authenticating hold
// no Client at all rather than a placeholder one.
func NewClient(identity string, store Store) (*Client, error) {
	if identity == "" {
		return nil, fmt.Errorf("presence: empty identity: %w", model.ErrNotAuthorized)
	}
	return &Client{identity: identity, store: store, now: time.Now}, nil
}

// Heartbeat marks the session alive in the room until roughly two intervals
// from now, tolerating one missed beat.
func (c *Client) Heartbeat(ctx context.Context, roomID, userID, sessionID string, interval time.Duration) (Tokens, error) {
	if userID != c.identity {
		return Tokens{}, fmt.Errorf("presence: heartbeat for %q by %q: %w", userID, c.identity, model.ErrNotAuthorized)
	}

	deadline := c.now().Add(2 * interval)
	key := roomKey(roomID)
	member := userID + "/" + sessionID

	if err := c.store.ZAdd(ctx, key, float64(deadline.UnixMilli()), member); err != nil {
		return Tokens{}, fmt.Errorf("presence: heartbeat: %w", err)
	}
	// Bound the set's lifetime so an abandoned room's roster disappears on
	// its own.
	_ = c.store.Expire(ctx, key, 4*interval)

	return Tokens{
		RoomToken:    encodeToken("pr1", roomID),
		SessionToken: encodeToken("ps1", roomID, member),
	}, nil
}

// List returns the room's current roster, trimming members whose heartbeat
// deadline has passed.
func (c *Client) List(ctx context.Context, roomToken string) ([]Entry, error) {
	parts, err := decodeToken("pr1", roomToken, 1)
	if err != nil {
		return nil, err
	}
	key := roomKey(parts[0])
	nowMilli := strconv.FormatInt(c.now().UnixMilli(), 10)

	if err := c.store.ZRemRangeByScore(ctx, key, "-inf", "("+nowMilli); err != nil {
		return nil, fmt.Errorf("presence: trim roster: %w", err)
	}
	members, err := c.store.ZRangeByScore(ctx, key, nowMilli, "+inf")
	if err != nil {
		return nil, fmt.Errorf("presence: list roster: %w", err)
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		userID, sessionID, ok := strings.Cut(m, "/")
		if !ok {
			continue
		}
		entries = append(entries, Entry{UserID: userID, SessionID: sessionID})
	}
	return entries, nil
}

// Disconnect removes the session from its room's roster immediately.
func (c *Client) Disconnect(ctx context.Context, sessionToken string) error {
	parts, err := decodeToken("ps1", sessionToken, 2)
	if err != nil {
		return err
	}
	if err := c.store.ZRem(ctx, roomKey(parts[0]), parts[1]); err != nil {
		return fmt.Errorf("presence: disconnect: %w", err)
	}
	return nil
}

func roomKey(roomID string) string {
	return "presence:" + roomID
}

func encodeToken(prefix string, parts ...string) string {
	enc := make([]string, 0, len(parts)+1)
	enc = append(enc, prefix)
	for _, p := range parts {
		enc = append(enc, base64.RawURLEncoding.EncodeToString([]byte(p)))
	}
	return strings.Join(enc, ".")
}

func decodeToken(prefix, token string, n int) ([]string, error) {
	fields := strings.Split(token, ".")
	if len(fields) != n+1 || fields[0] != prefix {
		return nil, fmt.Errorf("presence: malformed token")
	}
	out := make([]string, 0, n)
	for _, f := range fields[1:] {
		raw, err := base64.RawURLEncoding.DecodeString(f)
		if err != nil {
			return nil, fmt.Errorf("presence: malformed token")
		}
		out = append(out, string(raw))
	}
	return out, nil
}
