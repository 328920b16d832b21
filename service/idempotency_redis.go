package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore is an IdempotencyStore backed by Redis, for hosts
// running multiple service processes against a shared cache instead of the
// single-process MemoryIdempotencyStore.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisIdempotencyStore builds a RedisIdempotencyStore. ttl bounds how
// long an idempotency key is remembered; zero means keys never expire.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: keyPrefix, ttl: ttl}
}

func (r *RedisIdempotencyStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("service: redis idempotency lookup: %w", err)
	}
	return id, true, nil
}

func (r *RedisIdempotencyStore) Record(ctx context.Context, key, instanceID string) error {
	// SetNX keeps a racing duplicate Start from overwriting the ID the
	// first caller already recorded.
	ok, err := r.client.SetNX(ctx, r.key(key), instanceID, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("service: redis idempotency record: %w", err)
	}
	if !ok {
		return nil
	}
	return nil
}
