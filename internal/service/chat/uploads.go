package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// uploadTTL bounds how long a client has between requesting an upload
// target and pushing bytes to it.
const uploadTTL = 10 * time.Minute

type (
	// UploadTarget is a one-time destination for pushing opaque encrypted
	// bytes straight to blob storage, out of band from the message append.
	UploadTarget struct {
		ID        string    `json:"id"`
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	// UploadRegistry tracks issued upload targets. Consume succeeds at
	// most once per id; a second push to the same target is rejected.
	UploadRegistry interface {
		Create(ctx context.Context, id string, ttl time.Duration) error
		Consume(ctx context.Context, id string) (bool, error)
	}
)

// GenerateUploadTarget issues a fresh one-time upload destination.
func (s *Service) GenerateUploadTarget(ctx context.Context) (*UploadTarget, error) {
	id := uuid.NewString()
	if err := s.uploads.Create(ctx, id, uploadTTL); err != nil {
		return nil, fmt.Errorf("chat: register upload target: %w", err)
	}
	return &UploadTarget{
		ID:        id,
		URL:       s.blobBaseURL + "/uploads/" + id,
		ExpiresAt: s.now().Add(uploadTTL),
	}, nil
}

// AcceptUpload consumes an upload target and stores the pushed bytes as a
// blob under the target's id. An unknown, expired, or already-consumed
// target yields a BlobError with op "upload".
func (s *Service) AcceptUpload(ctx context.Context, uploadID string, data []byte) error {
	ok, err := s.uploads.Consume(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("chat: consume upload target: %w", err)
	}
	if !ok {
		return &UploadTargetError{ID: uploadID}
	}
	if err := s.blobs.Put(ctx, uploadID, data); err != nil {
		return fmt.Errorf("chat: store blob: %w", err)
	}
	return nil
}

// UploadTargetError means the upload id was never issued, already consumed,
// or expired.
type UploadTargetError struct {
	ID string
}

func (e *UploadTargetError) Error() string {
	return fmt.Sprintf("upload target %s is not valid", e.ID)
}

// MemoryUploadRegistry is the in-process registry used without Redis.
type MemoryUploadRegistry struct {
	mu      sync.Mutex
	pending map[string]time.Time
	now     func() time.Time
}

func NewMemoryUploadRegistry() *MemoryUploadRegistry {
	return &MemoryUploadRegistry{
		pending: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryUploadRegistry) Create(_ context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = r.now().Add(ttl)
	return nil
}

func (r *MemoryUploadRegistry) Consume(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline, ok := r.pending[id]
	if !ok {
		return false, nil
	}
	delete(r.pending, id)
	return r.now().Before(deadline), nil
}

var _ UploadRegistry = (*MemoryUploadRegistry)(nil)
