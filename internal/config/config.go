package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultRedisURL points at a local Redis.
	DefaultRedisURL = "redis://localhost:6379/0"

	// DefaultAllowedOrigin is empty, which restricts websocket upgrades to same-origin requests.
	DefaultAllowedOrigin = ""

	// DefaultRedisConnectAttempts and DefaultRedisConnectDelay bound the startup ping.
	DefaultRedisConnectAttempts = 3
	DefaultRedisConnectDelay    = 500 * time.Millisecond

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout = 10 * time.Second
)

// CacheBackend selects the cache implementation.
type CacheBackend string

const (
	CacheRedis  CacheBackend = "redis"
	CacheMemory CacheBackend = "memory"
	CacheNone   CacheBackend = "none"
)

// DefaultCacheBackend is used when no backend is configured.
const DefaultCacheBackend = CacheRedis

// ParseCacheBackend validates a backend name.
func ParseCacheBackend(s string) (CacheBackend, error) {
	switch b := CacheBackend(strings.ToLower(strings.TrimSpace(s))); b {
	case CacheRedis, CacheMemory, CacheNone:
		return b, nil
	case "":
		return DefaultCacheBackend, nil
	default:
		return "", fmt.Errorf("unknown cache backend %q (want redis, memory or none)", s)
	}
}
