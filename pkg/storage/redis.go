package storage

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/cinepass/pkg/redis"
)

type redisBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetIfExists(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	Key(parts ...string) string
}

// RedisStore persists values in redis under the client namespace. Every save
// resets the key TTL so abandoned carts expire on their own.
type RedisStore struct {
	client redisBackend
	ttl    time.Duration
}

func NewRedisStore(client redisBackend, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.GetBytes(ctx, s.client.Key(key))
	if redis.IsMiss(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.client.Key(key), value, s.ttl)
}

func (s *RedisStore) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	return s.client.SetIfExists(ctx, s.client.Key(key), value, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.client.Key(key))
}
