// Package memory provides in-process implementations of the chat stores.
// Used by tests and by server deployments running without Mongo.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/repository/blob"
)

type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]model.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]model.Room)}
}

func (s *RoomStore) Insert(_ context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *room
	return nil
}

func (s *RoomStore) Get(_ context.Context, id string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (s *RoomStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *RoomStore) ListExpired(_ context.Context, cutoff time.Time) ([]*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*model.Room
	for _, room := range s.rooms {
		if room.ExpiresAt.Before(cutoff) {
			r := room
			expired = append(expired, &r)
		}
	}
	return expired, nil
}

type MessageStore struct {
	mu       sync.Mutex
	messages []model.Message

	// FailDelete, when set, overrides Delete for matching ids. Test hook
	// for exercising partial-cleanup tolerance.
	FailDelete func(id string) error
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) Insert(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MessageStore) ListByRoom(_ context.Context, roomID string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for i := range s.messages {
		if s.messages[i].RoomID == roomID {
			m := s.messages[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (s *MessageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		if err := s.FailDelete(id); err != nil {
			return err
		}
	}
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

type BlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// FailDelete, when set, overrides Delete for matching ids. Test hook
	// for exercising partial-cleanup tolerance.
	FailDelete func(id string) error
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Put(_ context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[id] = buf
	return nil
}

func (s *BlobStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[id]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (s *BlobStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[id]
	return ok, nil
}

func (s *BlobStore) Delete(_ context.Context, id string) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

// Len reports how many blobs are currently stored.
func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
