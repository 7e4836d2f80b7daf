// Package chat implements the room and message lifecycle: creation with a
// TTL, append-only encrypted messages, bulk clears, and expiry.
//
// The service stores ciphertext verbatim. Rooms expire two ways: lazily,
// because every read date-compares against the room record, and eagerly,
// because the Reaper sweeps expired rooms on a fixed interval. The sweep is
// a cleanup optimization; reads never depend on it for correctness.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/envelope"
	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/repository/blob"
	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

type (
	// RoomStore persists room metadata, indexed by expiry for the sweep.
	RoomStore interface {
		Insert(ctx context.Context, room *model.Room) error
		Get(ctx context.Context, id string) (*model.Room, error)
		Delete(ctx context.Context, id string) error
		ListExpired(ctx context.Context, cutoff time.Time) ([]*model.Room, error)
	}

	// MessageStore persists messages, listable per room in insertion order.
	MessageStore interface {
		Insert(ctx context.Context, msg *model.Message) error
		ListByRoom(ctx context.Context, roomID string) ([]*model.Message, error)
		Delete(ctx context.Context, id string) error
	}

	// BlobStore holds encrypted file bodies. Delete is idempotent.
	BlobStore interface {
		Put(ctx context.Context, id string, data []byte) error
		Get(ctx context.Context, id string) ([]byte, error)
		Exists(ctx context.Context, id string) (bool, error)
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		rooms    RoomStore
		messages MessageStore
		blobs    BlobStore
		uploads  UploadRegistry

		blobBaseURL string
		notify      func(msg *model.Message)
		now         func() time.Time
	}
)

func NewService(rooms RoomStore, messages MessageStore, blobs BlobStore, uploads UploadRegistry, blobBaseURL string) *Service {
	return &Service{
		rooms:       rooms,
		messages:    messages,
		blobs:       blobs,
		uploads:     uploads,
		blobBaseURL: blobBaseURL,
		now:         time.Now,
	}
}

// SetNotifier registers a callback invoked after every appended message.
// Used by the websocket layer to fan out to room subscribers.
func (s *Service) SetNotifier(fn func(msg *model.Message)) {
	s.notify = fn
}

// CreateRoom creates a room expiring at now+ttl. The salt is stored iff the
// room is passphrase-protected; that pairing is the invariant binding a
// passphrase to the room's derived key, so mismatched arguments are
// rejected rather than repaired.
func (s *Service) CreateRoom(ctx context.Context, name string, passphraseRequired bool, ttl time.Duration, salt []byte) (string, error) {
	if ttl < 0 {
		return "", fmt.Errorf("chat: negative ttl %v", ttl)
	}
	if passphraseRequired && len(salt) != kdf.SaltSize {
		return "", fmt.Errorf("chat: passphrase-protected room needs a %d-byte salt", kdf.SaltSize)
	}
	if !passphraseRequired && len(salt) != 0 {
		return "", fmt.Errorf("chat: salt given for an unprotected room")
	}

	now := s.now()
	room := &model.Room{
		ID:                 uuid.NewString(),
		Name:               name,
		PassphraseRequired: passphraseRequired,
		ExpiresAt:          now.Add(ttl),
		Salt:               salt,
		CreatedAt:          now,
	}

	if err := s.rooms.Insert(ctx, room); err != nil {
		return "", fmt.Errorf("chat: insert room: %w", err)
	}

	log.Info("room created",
		zap.String("roomID", room.ID),
		zap.Bool("passphraseRequired", passphraseRequired),
		zap.Time("expiresAt", room.ExpiresAt))
	return room.ID, nil
}

// GetRoom returns room metadata. An expired room is indistinguishable from
// one that never existed: both yield ErrRoomNotAvailable.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.liveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, model.ErrRoomNotAvailable
	}
	return room, nil
}

// SendMessage appends an encrypted message. When the room is gone or has
// expired at write time, a file message's already-uploaded blob is deleted
// on the failure path so storage cannot leak orphans.
func (s *Service) SendMessage(ctx context.Context, roomID, author string, content, iv []byte, isFile bool, file *model.FileRef) (*model.Message, error) {
	if len(iv) != envelope.IVSize {
		return nil, fmt.Errorf("chat: message iv must be %d bytes", envelope.IVSize)
	}
	if isFile != (file != nil) {
		return nil, fmt.Errorf("chat: file reference present iff isFile")
	}
	if file != nil && len(file.IV) != envelope.IVSize {
		return nil, fmt.Errorf("chat: file iv must be %d bytes", envelope.IVSize)
	}

	room, err := s.liveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		if file != nil {
			if derr := s.blobs.Delete(ctx, file.StorageID); derr != nil {
				log.Error("failed to delete orphaned blob",
					zap.String("blobID", file.StorageID), zap.Error(derr))
			}
		}
		return nil, model.ErrRoomNotAvailable
	}

	msg := &model.Message{
		ID:      uuid.NewString(),
		RoomID:  roomID,
		Author:  author,
		Content: content,
		IV:      iv,
		IsFile:  isFile,
		File:    file,
		SentAt:  s.now(),
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("chat: insert message: %w", err)
	}

	if s.notify != nil {
		s.notify(msg)
	}
	return msg, nil
}

// GetMessages lists the room's messages in insertion order. A missing or
// expired room yields an empty slice, not an error. File messages carry a
// retrieval URL; a failed resolution leaves the URL empty for that message
// without aborting the listing.
func (s *Service) GetMessages(ctx context.Context, roomID string) ([]*model.Message, error) {
	room, err := s.liveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return []*model.Message{}, nil
	}

	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: list messages: %w", err)
	}

	for _, msg := range messages {
		if !msg.IsFile || msg.File == nil {
			continue
		}
		msg.URL = s.retrievalURL(ctx, msg.File.StorageID)
	}
	return messages, nil
}

// ClearAllMessages deletes every message in the room. Blob deletions run
// best effort: a failed blob delete is logged and recorded in the report,
// and the remaining message records are still removed.
func (s *Service) ClearAllMessages(ctx context.Context, roomID string) (*CleanupReport, error) {
	report := &CleanupReport{}
	if _, err := s.purgeMessages(ctx, roomID, report); err != nil {
		return report, err
	}
	return report, nil
}

// purgeMessages removes all the room's messages and their blobs. Sibling
// messages are processed concurrently; the call returns only after every
// deletion has finished, which is the ordering barrier the Reaper relies on
// before it drops the room record. The count of message records that could
// not be deleted comes back separately from tolerated blob failures: the
// Reaper must not drop a room while any of its messages survive.
func (s *Service) purgeMessages(ctx context.Context, roomID string, report *CleanupReport) (int, error) {
	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("chat: list messages: %w", err)
	}

	var wg sync.WaitGroup
	var failed atomic.Int32
	for _, msg := range messages {
		wg.Add(1)
		go func(msg *model.Message) {
			defer wg.Done()

			if msg.IsFile && msg.File != nil {
				if err := s.blobs.Delete(ctx, msg.File.StorageID); err != nil {
					berr := &model.BlobError{Op: "delete", BlobID: msg.File.StorageID, Err: err}
					log.Error("failed to delete blob", zap.String("blobID", msg.File.StorageID), zap.Error(err))
					report.addFailure(berr)
				} else {
					report.addBlobDeleted()
				}
			}

			if err := s.messages.Delete(ctx, msg.ID); err != nil {
				log.Error("failed to delete message", zap.String("messageID", msg.ID), zap.Error(err))
				report.addMessageFailure(&model.MessageError{MessageID: msg.ID, Err: err})
				failed.Add(1)
				return
			}
			report.addMessageDeleted()
		}(msg)
	}
	wg.Wait()
	return int(failed.Load()), nil
}

// ErrBlobNotFound is returned by GetBlob for an unknown blob id.
var ErrBlobNotFound = blob.ErrNotFound

// GetBlob returns the raw encrypted bytes of a stored blob.
func (s *Service) GetBlob(ctx context.Context, blobID string) ([]byte, error) {
	data, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, &model.BlobError{Op: "retrieve", BlobID: blobID, Err: err}
	}
	return data, nil
}

// liveRoom returns the room only when it exists and has not expired, nil
// otherwise. All reads go through here so expiry is always date-compared
// against the record.
func (s *Service) liveRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: get room: %w", err)
	}
	if room == nil || room.Expired(s.now()) {
		return nil, nil
	}
	return room, nil
}

func (s *Service) retrievalURL(ctx context.Context, blobID string) string {
	ok, err := s.blobs.Exists(ctx, blobID)
	if err != nil {
		log.Error("failed to resolve blob url", zap.String("blobID", blobID), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return s.blobBaseURL + "/blobs/" + blobID
}
