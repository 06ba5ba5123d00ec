// Package redisrepo backs the idempotency middleware with Redis.
package redisrepo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore stores cached responses with a TTL.
type IdempotencyStore struct {
	client *redis.Client
}

// Connect parses the Redis URL, opens a client and pings it.
func Connect(ctx context.Context, url string) (*IdempotencyStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &IdempotencyStore{client: client}, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *IdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *IdempotencyStore) Close() error {
	return s.client.Close()
}
