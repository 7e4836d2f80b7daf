package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	RedisService struct {
		rdb *redis.Client
	}
)

func NewRedis(rdb *redis.Client) *RedisService {
	return &RedisService{
		rdb: rdb,
	}
}

func (r *RedisService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// GetDel fetches and removes a key atomically. Returns ("", nil) on a miss.
func (r *RedisService) GetDel(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (r *RedisService) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

func (r *RedisService) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisService) ZRem(ctx context.Context, key string, member string) error {
	return r.rdb.ZRem(ctx, key, member).Err()
}

func (r *RedisService) ZRangeByScore(ctx context.Context, key, min, max string) ([]string, error) {
	return r.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: min, Max: max}).Result()
}

func (r *RedisService) ZRemRangeByScore(ctx context.Context, key, min, max string) error {
	return r.rdb.ZRemRangeByScore(ctx, key, min, max).Err()
}

func (r *RedisService) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.rdb.Expire(ctx, key, ttl).Err()
}
