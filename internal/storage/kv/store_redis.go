package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"nightout/internal/sentinel"
)

// RedisStore persists entries as plain redis strings under a key prefix.
// Entries never expire; the slot is overwritten or removed explicitly.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis constructs a Redis-backed store. prefix namespaces every key.
func NewRedis(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("redis get %q: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}
