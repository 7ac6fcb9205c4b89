package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// MemoryCache serves single-instance deployments and tests; RedisCache is
// shared between replicas.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only if the key is absent. It reports whether the
	// value was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

// Key layouts.
const (
	// idem:{method}:{path}:{Idempotency-Key} -> recorded response
	KeyIdempotency = "idem:%s:%s:%s"
)
