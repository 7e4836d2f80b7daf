package redis

import (
	"context"
	"time"
)

// UploadRegistry is the Redis-backed one-time upload target registry used
// when the server runs with shared state across replicas.
type UploadRegistry struct {
	svc *RedisService
}

func NewUploadRegistry(svc *RedisService) *UploadRegistry {
	return &UploadRegistry{svc: svc}
}

func (r *UploadRegistry) Create(ctx context.Context, id string, ttl time.Duration) error {
	return r.svc.Set(ctx, "upload:"+id, "1", ttl)
}

// Consume claims the target. GetDel makes the claim atomic, so two
// concurrent pushes to the same target cannot both succeed.
func (r *UploadRegistry) Consume(ctx context.Context, id string) (bool, error) {
	v, err := r.svc.GetDel(ctx, "upload:"+id)
	if err != nil {
		return false, err
	}
	return v != "", nil
}
