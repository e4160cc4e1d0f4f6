// Package cache is the Redis-backed JSON cache in front of Postgres reads.
// Every failure is reported to the caller, who treats it as a miss: a
// sick cache slows requests down but never fails them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is what services depend on.
type Cache interface {
	// Get decodes the entry at key into dst. found is false when the key is
	// absent, expired or held an undecodable payload.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	// Set overwrites key and resets its TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Invalidate deletes keys. Missing keys are not an error.
	Invalidate(ctx context.Context, keys ...string) error
}

// Layer implements Cache on a go-redis client.
type Layer struct {
	client redis.UniversalClient
	logger *slog.Logger
	flight singleflight.Group
}

func NewLayer(client redis.UniversalClient, logger *slog.Logger) *Layer {
	return &Layer{client: client, logger: logger}
}

func (l *Layer) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := l.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		l.logger.WarnContext(ctx, "dropping undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if delErr := l.client.Del(ctx, key).Err(); delErr != nil {
			return false, fmt.Errorf("redis del %s: %w", key, delErr)
		}
		return false, nil
	}
	return true, nil
}

func (l *Layer) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value %s: %w", key, err)
	}
	if err := l.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (l *Layer) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del %v: %w", keys, err)
	}
	return nil
}

// Ping is the readiness check.
func (l *Layer) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
