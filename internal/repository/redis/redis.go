// Package redis implements repository.SessionStore on Redis.
//
// Use it when several replicas serve /auth/callback: they all see the same
// sessions, and Redis expires keys natively.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/uploader-auth/internal/apperror"
	"github.com/sakif/uploader-auth/internal/repository"
)

var _ repository.SessionStore = (*Store)(nil)

// Store wraps a go-redis client. Safe for concurrent use.
type Store struct {
	rdb *goredis.Client
}

// New connects to the Redis instance at redisURL
// (e.g. "redis://localhost:6379/0") and pings it before returning.
func New(ctx context.Context, redisURL string) (*Store, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing url: %w", err)
	}

	rdb := goredis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Close shuts down the client and its connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Put is a plain SET with EX. Redis second granularity is exact for the
// whole-day TTLs the login flow uses.
func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis: put: ttl must be positive, got %s", ttl)
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put: %w", err)
	}
	return nil
}

// Get maps redis.Nil (missing or expired key) to apperror.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", apperror.NotFound("entry")
		}
		return "", fmt.Errorf("redis: get: %w", err)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: delete: %w", err)
	}
	return nil
}
