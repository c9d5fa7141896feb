package ports

import (
	"context"
	"time"
)

// CacheStore defines the key-value cache contract the core builds on.
// Implementations should degrade gracefully (returning an error without
// crashing callers) so that application logic can fall back to upstream.
type CacheStore interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetMany resolves all keys in one round-trip. Missing keys are simply
	// absent from the result; they are not an error.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	// SetMany stores all items under one TTL in one round-trip.
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching a glob pattern, e.g.
	// "sprint:42:issues*". Absence of matches is not an error.
	DeletePattern(ctx context.Context, pattern string) error
}
