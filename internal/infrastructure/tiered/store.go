// Package tiered layers a fast local cache tier in front of a shared one.
// Reads check local first; shared hits hydrate the local tier under a
// short TTL so a restart or local eviction only costs one shared read.
package tiered

import (
	"context"
	"time"

	"github.com/agileview/reporting/go/internal/core/ports"
)

// DefaultLocalTTL caps how long a locally hydrated copy may outlive the
// shared entry's own expiry.
const DefaultLocalTTL = 30 * time.Second

// Store implements ports.CacheStore over a local and a shared tier.
type Store struct {
	local    ports.CacheStore
	shared   ports.CacheStore
	localTTL time.Duration
}

func NewStore(local, shared ports.CacheStore, localTTL time.Duration) *Store {
	if localTTL <= 0 {
		localTTL = DefaultLocalTTL
	}
	return &Store{local: local, shared: shared, localTTL: localTTL}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := s.local.Get(ctx, key); err == nil && ok {
		return b, true, nil
	}
	b, ok, err := s.shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = s.local.Set(ctx, key, b, s.localTTL)
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = s.local.Set(ctx, key, value, s.cap(ttl))
	return s.shared.Set(ctx, key, value, ttl)
}

func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out, err := s.local.GetMany(ctx, keys)
	if err != nil {
		out = map[string][]byte{}
	}
	var missing []string
	for _, key := range keys {
		if _, ok := out[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	fromShared, err := s.shared.GetMany(ctx, missing)
	if err != nil {
		// Local hits are still good; the caller fails open on the rest.
		return out, err
	}
	if len(fromShared) > 0 {
		_ = s.local.SetMany(ctx, fromShared, s.localTTL)
	}
	for key, b := range fromShared {
		out[key] = b
	}
	return out, nil
}

func (s *Store) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	_ = s.local.SetMany(ctx, items, s.cap(ttl))
	return s.shared.SetMany(ctx, items, ttl)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_ = s.local.Delete(ctx, key)
	return s.shared.Delete(ctx, key)
}

func (s *Store) DeletePattern(ctx context.Context, pattern string) error {
	_ = s.local.DeletePattern(ctx, pattern)
	return s.shared.DeletePattern(ctx, pattern)
}

// cap bounds local copies to the tier TTL so they never outlive an earlier
// shared expiry by much.
func (s *Store) cap(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > s.localTTL {
		return s.localTTL
	}
	return ttl
}

var _ ports.CacheStore = (*Store)(nil)
