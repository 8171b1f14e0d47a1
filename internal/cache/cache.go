// Package cache provides the key/value cache used by the task and user services.
//
// Every implementation reports failures as errors and never panics. Callers are
// expected to treat any error from Get as a miss and any error from a write as a
// no-op, so an unreachable backing store degrades reads to the database instead
// of failing requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")

	// ErrPrefixUnsupported is returned by DeletePrefix when the store cannot enumerate keys.
	ErrPrefixUnsupported = errors.New("cache store does not support key enumeration")
)

// Key namespace shared with every process using the same backing store.
const (
	TasksAllKey = "tasks:all"
	TasksPrefix = "tasks:"
	UsersAllKey = "users:all"
)

// TTLs for cached collections.
const (
	TaskListTTL = 60 * time.Second
	UserTTL     = 300 * time.Second
)

// TasksUserKey is the key of the task list visible to a non-admin user.
func TasksUserKey(userID string) string {
	return "tasks:user:" + userID
}

// UserKey is the key of a single cached user.
func UserKey(userID string) string {
	return "user:" + userID
}

// Cache is a key/value store with per-key TTL.
type Cache interface {
	// Get returns the stored value or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// GetJSON reads key and decodes it into dst.
// A value that fails to decode is reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMiss, key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// InvalidatePrefix deletes every key under prefix. When the store cannot
// enumerate keys it deletes only fallbackKey, leaving other entries to expire
// via their TTL. The returned count is the number of keys removed when known.
func InvalidatePrefix(ctx context.Context, c Cache, prefix, fallbackKey string) (int, error) {
	n, err := c.DeletePrefix(ctx, prefix)
	if err == nil {
		return n, nil
	}
	if delErr := c.Delete(ctx, fallbackKey); delErr != nil {
		return 0, errors.Join(err, delErr)
	}
	if errors.Is(err, ErrPrefixUnsupported) {
		return 1, nil
	}
	return 1, err
}
