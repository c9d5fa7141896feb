package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultFanOut caps concurrent upstream fetches per batch when no limit
// is configured.
const DefaultFanOut = 8

// refreshMeta is the side-record written next to every batch-filled value
// so the orchestrator can decide half-life refresh eligibility.
type refreshMeta struct {
	CreatedAt time.Time `json:"createdAt"`
}

// Filler resolves sets of logically independent cache keys with one
// multi-get, bounded parallel fetches of the misses, and one multi-set.
type Filler struct {
	store   ports.CacheStore
	logger  *logrus.Logger
	fanOut  int
	flights singleflight.Group
}

func NewFiller(store ports.CacheStore, logger *logrus.Logger, fanOut int) *Filler {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	return &Filler{store: store, logger: logger, fanOut: fanOut}
}

// FetchFunc loads one missing key from upstream.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// FillBatch resolves keys cache-first. At most one multi-get and one
// multi-set hit the store per call. Concurrent callers missing the same key
// share a single upstream fetch. One failing fetch fails the whole batch:
// a silently incomplete result is worse than an explicit failure.
func FillBatch[V any](ctx context.Context, f *Filler, keys []string, ttl time.Duration, fetch FetchFunc[V]) (map[string]V, error) {
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cached, err := f.store.GetMany(ctx, keys)
	if err != nil {
		// Fail open: a broken store degrades to fetching everything.
		if f.logger != nil {
			f.logger.WithError(err).Warn("cache multi-get failed, treating batch as all misses")
		}
		cached = nil
	}

	var misses []string
	for _, key := range keys {
		b, ok := cached[key]
		if !ok {
			cacheMissesTotal.WithLabelValues(keyNamespace(key)).Inc()
			misses = append(misses, key)
			continue
		}
		var v V
		if err := json.Unmarshal(b, &v); err != nil {
			// A corrupt entry is a miss, not an error.
			cacheMissesTotal.WithLabelValues(keyNamespace(key)).Inc()
			misses = append(misses, key)
			continue
		}
		cacheHitsTotal.WithLabelValues(keyNamespace(key)).Inc()
		out[key] = v
	}
	if len(misses) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	fetched := make(map[string]V, len(misses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fanOut)
	for _, key := range misses {
		key := key
		g.Go(func() error {
			res, err, _ := f.flights.Do(key, func() (any, error) {
				upstreamFetchesTotal.WithLabelValues(keyNamespace(key)).Inc()
				return fetch(gctx, key)
			})
			if err != nil {
				return fmt.Errorf("fetch %s: %w", key, err)
			}
			v, ok := res.(V)
			if !ok {
				return fmt.Errorf("fetch %s: unexpected result type", key)
			}
			mu.Lock()
			fetched[key] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make(map[string][]byte, len(fetched)*2)
	metaBytes, _ := json.Marshal(refreshMeta{CreatedAt: time.Now().UTC()})
	for key, v := range fetched {
		b, err := json.Marshal(v)
		if err != nil {
			if f.logger != nil {
				f.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("skipping cache write for unmarshalable value")
			}
			continue
		}
		items[key] = b
		items[cachekey.RefreshMeta(key)] = metaBytes
	}
	f.writeBack(ctx, items, ttl)

	for key, v := range fetched {
		out[key] = v
	}
	return out, nil
}

// FillBatchOrdered is FillBatch returning values in the caller's key order.
func FillBatchOrdered[V any](ctx context.Context, f *Filler, keys []string, ttl time.Duration, fetch FetchFunc[V]) ([]V, error) {
	m, err := FillBatch(ctx, f, keys, ttl, fetch)
	if err != nil {
		return nil, err
	}
	ordered := make([]V, 0, len(keys))
	for _, key := range keys {
		ordered = append(ordered, m[key])
	}
	return ordered, nil
}

// writeBack stores marshalled values and their refresh metadata in one
// multi-set. Write failures never fail the batch.
func (f *Filler) writeBack(ctx context.Context, items map[string][]byte, ttl time.Duration) {
	if len(items) == 0 {
		return
	}
	if err := f.store.SetMany(ctx, items, ttl); err != nil && f.logger != nil {
		f.logger.WithError(err).Warn("cache multi-set failed, serving fetched values uncached")
	}
}
