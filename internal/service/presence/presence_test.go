package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/repository/memory"
)

func TestNewClientRequiresIdentity(t *testing.T) {
	if _, err := NewClient("", memory.NewSortedSet()); !errors.Is(err, model.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := NewClient("user-1", memory.NewSortedSet()); err != nil {
		t.Fatalf("verified identity should get a client: %v", err)
	}
}

func TestHeartbeatRejectsOtherIdentity(t *testing.T) {
	c, err := NewClient("user-1", memory.NewSortedSet())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Heartbeat(context.Background(), "room-1", "user-2", "sess-1", 10*time.Second)
	if !errors.Is(err, model.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestHeartbeatListDisconnect(t *testing.T) {
	store := memory.NewSortedSet()
	ctx := context.Background()

	alice, _ := NewClient("alice", store)
	bob, _ := NewClient("bob", store)

	tokens, err := alice.Heartbeat(ctx, "room-1", "alice", "sess-a", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	bobTokens, err := bob.Heartbeat(ctx, "room-1", "bob", "sess-b", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if tokens.RoomToken != bobTokens.RoomToken {
		t.Fatal("both sessions of one room should share a room token")
	}

	roster, err := alice.List(ctx, tokens.RoomToken)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 roster entries, got %d", len(roster))
	}

	if err := bob.Disconnect(ctx, bobTokens.SessionToken); err != nil {
		t.Fatal(err)
	}
	roster, err = alice.List(ctx, tokens.RoomToken)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 1 || roster[0].UserID != "alice" {
		t.Fatalf("expected only alice after disconnect, got %+v", roster)
	}
}

func TestRoomsHaveSeparateRosters(t *testing.T) {
	store := memory.NewSortedSet()
	ctx := context.Background()

	alice, _ := NewClient("alice", store)
	t1, err := alice.Heartbeat(ctx, "room-1", "alice", "sess-a", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	bob, _ := NewClient("bob", store)
	if _, err := bob.Heartbeat(ctx, "room-2", "bob", "sess-b", 10*time.Second); err != nil {
		t.Fatal(err)
	}

	roster, err := alice.List(ctx, t1.RoomToken)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 1 || roster[0].UserID != "alice" {
		t.Fatalf("room-1 roster leaked across rooms: %+v", roster)
	}
}

func TestListTrimsExpiredSessions(t *testing.T) {
	store := memory.NewSortedSet()
	ctx := context.Background()

	alice, _ := NewClient("alice", store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alice.now = func() time.Time { return base }

	tokens, err := alice.Heartbeat(ctx, "room-1", "alice", "sess-a", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	// Well past the two-interval deadline.
	alice.now = func() time.Time { return base.Add(30 * time.Second) }
	roster, err := alice.List(ctx, tokens.RoomToken)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 0 {
		t.Fatalf("stale session should be trimmed, got %+v", roster)
	}
}

func TestMalformedTokens(t *testing.T) {
	c, _ := NewClient("alice", memory.NewSortedSet())
	if _, err := c.List(context.Background(), "garbage"); err == nil {
		t.Fatal("malformed room token should error")
	}
	if err := c.Disconnect(context.Background(), "pr1.only"); err == nil {
		t.Fatal("malformed session token should error")
	}
}
