package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// ConnectRedis parses url, then pings the server with exponential backoff
// until it answers or attempts run out.
func ConnectRedis(ctx context.Context, url string, attempts int, delay time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	r := retry.New[*redis.Client](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	})

	client, err := r.Do(ctx, func(ctx context.Context) (*redis.Client, error) {
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			slog.Warn("redis connection attempt failed", "addr", opts.Addr, "error", err)
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis at %s: %w", opts.Addr, err)
	}

	slog.Info("redis connected", "addr", opts.Addr)
	return &Redis{client: client}, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping checks that the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return unavailable(r.client.Ping(ctx).Err())
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return data, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return unavailable(r.client.Set(ctx, key, value, ttl).Err())
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return unavailable(r.client.Del(ctx, keys...).Err())
}

// DeletePrefix implements Cache using SCAN so the server is never blocked by KEYS.
// Matching keys are collected over the full scan before any DEL, since some
// Redis-protocol stores skip keys when the keyspace shrinks under a cursor.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, unavailable(err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}

	deleted := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := r.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, unavailable(err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: redis: %v", domain.ErrUnavailable, err)
}
