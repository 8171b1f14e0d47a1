package cache

import (
	"context"
	"time"
)

// Bypass is the degraded-mode Cache: every read misses and every write is
// dropped. It cannot enumerate keys, so DeletePrefix reports ErrPrefixUnsupported.
type Bypass struct{}

// Get implements Cache.
func (Bypass) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

// Set implements Cache.
func (Bypass) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete implements Cache.
func (Bypass) Delete(context.Context, ...string) error { return nil }

// DeletePrefix implements Cache.
func (Bypass) DeletePrefix(context.Context, string) (int, error) {
	return 0, ErrPrefixUnsupported
}
