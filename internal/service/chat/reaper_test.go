package chat

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/repository/memory"
)

// stampedRoomStore records the wall-clock instant of each room deletion so
// tests can assert sweep ordering.
type stampedRoomStore struct {
	*memory.RoomStore
	mu        sync.Mutex
	deletedAt map[string]time.Time
}

func newStampedRoomStore() *stampedRoomStore {
	return &stampedRoomStore{RoomStore: memory.NewRoomStore(), deletedAt: make(map[string]time.Time)}
}

func (s *stampedRoomStore) Delete(ctx context.Context, id string) error {
	err := s.RoomStore.Delete(ctx, id)
	s.mu.Lock()
	s.deletedAt[id] = time.Now()
	s.mu.Unlock()
	return err
}

type stampedMessageStore struct {
	*memory.MessageStore
	mu        sync.Mutex
	deletedAt []time.Time
}

func newStampedMessageStore() *stampedMessageStore {
	return &stampedMessageStore{MessageStore: memory.NewMessageStore()}
}

func (s *stampedMessageStore) Delete(ctx context.Context, id string) error {
	err := s.MessageStore.Delete(ctx, id)
	s.mu.Lock()
	s.deletedAt = append(s.deletedAt, time.Now())
	s.mu.Unlock()
	return err
}

func TestReaperSweepOrdering(t *testing.T) {
	rooms := newStampedRoomStore()
	messages := newStampedMessageStore()
	blobs := memory.NewBlobStore()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := NewService(rooms, messages, blobs, NewMemoryUploadRegistry(), "http://localhost:9090")
	svc.now = clock.now
	reaper := NewReaper(svc)

	ctx := context.Background()
	roomID, err := svc.CreateRoom(ctx, "", false, time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}

	const n = 5
	for i := 0; i < n; i++ {
		blobID := string(rune('a' + i))
		if err := blobs.Put(ctx, blobID, bytes.Repeat([]byte{byte(i)}, 8)); err != nil {
			t.Fatal(err)
		}
		file := &model.FileRef{StorageID: blobID, IV: testIV(), Type: "application/octet-stream"}
		if _, err := svc.SendMessage(ctx, roomID, "alice", []byte("enc"), testIV(), true, file); err != nil {
			t.Fatal(err)
		}
	}

	clock.advance(2 * time.Minute)

	report, err := reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if report.RoomsDeleted != 1 || report.MessagesDeleted != n || report.BlobsDeleted != n {
		t.Fatalf("report = %+v, want 1 room / %d messages / %d blobs", report, n, n)
	}
	if blobs.Len() != 0 {
		t.Fatalf("%d blobs remain after sweep", blobs.Len())
	}
	if room, _ := rooms.Get(ctx, roomID); room != nil {
		t.Fatal("room record should be gone")
	}
	if left, _ := messages.ListByRoom(ctx, roomID); len(left) != 0 {
		t.Fatalf("%d message records remain after sweep", len(left))
	}

	roomDeletedAt := rooms.deletedAt[roomID]
	for i, at := range messages.deletedAt {
		if roomDeletedAt.Before(at) {
			t.Fatalf("room was deleted before message deletion #%d", i)
		}
	}
}

func TestReaperIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateRoom(ctx, "", false, time.Minute, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.advance(2 * time.Minute)

	reaper := NewReaper(f.svc)
	first, err := reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.RoomsDeleted != 1 {
		t.Fatalf("first sweep deleted %d rooms, want 1", first.RoomsDeleted)
	}

	second, err := reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("re-running a sweep must be a no-op, got %v", err)
	}
	if second.RoomsDeleted != 0 || !second.Clean() {
		t.Fatalf("second sweep should find nothing, got %+v", second)
	}
}

func TestReaperLeavesLiveRooms(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	liveID, _ := f.svc.CreateRoom(ctx, "", false, time.Hour, nil)
	if _, err := f.svc.CreateRoom(ctx, "", false, time.Minute, nil); err != nil {
		t.Fatal(err)
	}

	f.clock.advance(5 * time.Minute)

	reaper := NewReaper(f.svc)
	report, err := reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.RoomsDeleted != 1 {
		t.Fatalf("expected exactly the short-lived room gone, got %d", report.RoomsDeleted)
	}
	if _, err := f.svc.GetRoom(ctx, liveID); err != nil {
		t.Fatalf("live room should survive the sweep: %v", err)
	}
}

func TestReaperKeepsRoomWhileMessagesSurvive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	roomID, _ := f.svc.CreateRoom(ctx, "", false, time.Minute, nil)
	if _, err := f.svc.SendMessage(ctx, roomID, "alice", []byte("enc"), testIV(), false, nil); err != nil {
		t.Fatal(err)
	}

	f.messages.FailDelete = func(id string) error {
		return errors.New("storage hiccup")
	}
	f.clock.advance(2 * time.Minute)

	reaper := NewReaper(f.svc)
	report, err := reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.RoomsDeleted != 0 {
		t.Fatalf("room must outlive its surviving messages, report = %+v", report)
	}
	if len(report.MessageFailures) != 1 {
		t.Fatalf("expected the message failure recorded, got %+v", report.MessageFailures)
	}
	if room, _ := f.rooms.Get(ctx, roomID); room == nil {
		t.Fatal("room record was deleted while a message record remains")
	}
	if left, _ := f.messages.ListByRoom(ctx, roomID); len(left) != 1 {
		t.Fatalf("message record should remain, got %d", len(left))
	}

	// Once the store recovers, the next sweep finishes the job.
	f.messages.FailDelete = nil
	report, err = reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.RoomsDeleted != 1 || report.MessagesDeleted != 1 || !report.Clean() {
		t.Fatalf("recovery sweep should delete message then room, got %+v", report)
	}
	if room, _ := f.rooms.Get(ctx, roomID); room != nil {
		t.Fatal("room record should be gone after the recovery sweep")
	}
}

func TestReaperToleratesBlobFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	roomID, _ := f.svc.CreateRoom(ctx, "", false, time.Minute, nil)

	if err := f.blobs.Put(ctx, "stuck", []byte("ciphertext")); err != nil {
		t.Fatal(err)
	}
	file := &model.FileRef{StorageID: "stuck", IV: testIV(), Type: "text/plain"}
	if _, err := f.svc.SendMessage(ctx, roomID, "alice", []byte("enc"), testIV(), true, file); err != nil {
		t.Fatal(err)
	}

	f.blobs.FailDelete = func(id string) error {
		return errors.New("storage hiccup")
	}
	f.clock.advance(2 * time.Minute)

	report, err := NewReaper(f.svc).SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.RoomsDeleted != 1 || report.MessagesDeleted != 1 {
		t.Fatalf("sweep should still remove records: %+v", report)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected the blob failure recorded, got %+v", report.Failures)
	}
}
