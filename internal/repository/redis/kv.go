package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// KVStore implements repository.KVStore on Redis. Values are written with a
// TTL so abandoned carts and sessions expire on their own.
type KVStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKVStore creates a Redis-backed key-value store.
func NewKVStore(client *redis.Client, ttl time.Duration) *KVStore {
	return &KVStore{client: client, ttl: ttl}
}

// Get retrieves the value for a key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("key", key)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set overwrites the value for a key, refreshing the TTL.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
