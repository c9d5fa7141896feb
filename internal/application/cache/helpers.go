package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/ports"
)

// GetJSON reads and decodes a cached value. Store errors and corrupt
// entries count as misses: reads always fail open.
func GetJSON[T any](ctx context.Context, store ports.CacheStore, key string) (*T, bool) {
	if store == nil {
		return nil, false
	}
	b, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		cacheMissesTotal.WithLabelValues(keyNamespace(key)).Inc()
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		cacheMissesTotal.WithLabelValues(keyNamespace(key)).Inc()
		return nil, false
	}
	cacheHitsTotal.WithLabelValues(keyNamespace(key)).Inc()
	return &v, true
}

// SetJSONWithMeta encodes and stores a value together with its half-life
// refresh metadata, best-effort. Every refresh-eligible write must carry
// the metadata record, or background refresh silently never triggers.
func SetJSONWithMeta(ctx context.Context, store ports.CacheStore, key string, v any, ttl time.Duration) {
	if store == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	metaBytes, _ := json.Marshal(refreshMeta{CreatedAt: time.Now().UTC()})
	_ = store.SetMany(ctx, map[string][]byte{
		key:                       b,
		cachekey.RefreshMeta(key): metaBytes,
	}, ttl)
}
