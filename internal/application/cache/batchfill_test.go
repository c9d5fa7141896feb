package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appcache "github.com/agileview/reporting/go/internal/application/cache"
	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillBatch_FetchesMissesOnceThenHits(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	filler := appcache.NewFiller(store, nil, 4)

	var mu sync.Mutex
	fetches := make(map[string]int)
	fetch := func(_ context.Context, key string) (string, error) {
		mu.Lock()
		fetches[key]++
		mu.Unlock()
		return "value-" + key, nil
	}

	keys := []string{"sprint:1:issues", "sprint:2:issues", "sprint:3:issues"}
	got, err := appcache.FillBatch(context.Background(), filler, keys, time.Minute, fetch)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, key := range keys {
		assert.Equal(t, "value-"+key, got[key])
		assert.Equal(t, 1, fetches[key])
	}

	// Second call with a warm store performs zero upstream fetches.
	got, err = appcache.FillBatch(context.Background(), filler, keys, time.Minute, fetch)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, key := range keys {
		assert.Equal(t, 1, fetches[key])
	}
}

func TestFillBatch_WritesRefreshMetadataWithValues(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	filler := appcache.NewFiller(store, nil, 4)

	_, err := appcache.FillBatch(context.Background(), filler, []string{"sprint:9:issues"}, time.Minute,
		func(_ context.Context, key string) (string, error) { return "v", nil })
	require.NoError(t, err)

	_, ok, err := store.Get(context.Background(), cachekey.RefreshMeta("sprint:9:issues"))
	require.NoError(t, err)
	assert.True(t, ok, "refresh metadata must be written in the same operation as the value")
}

func TestFillBatch_OneFailingFetchFailsWholeBatch(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	filler := appcache.NewFiller(store, nil, 4)

	fetch := func(_ context.Context, key string) (string, error) {
		if key == "sprint:2:issues" {
			return "", errors.New("upstream timeout")
		}
		return "ok", nil
	}
	_, err := appcache.FillBatch(context.Background(), filler, []string{"sprint:1:issues", "sprint:2:issues"}, time.Minute, fetch)
	assert.Error(t, err)
}

func TestFillBatchOrdered_PreservesCallerKeyOrder(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	filler := appcache.NewFiller(store, nil, 4)

	keys := []string{"sprint:3:issues", "sprint:1:issues", "sprint:2:issues"}
	got, err := appcache.FillBatchOrdered(context.Background(), filler, keys, time.Minute,
		func(_ context.Context, key string) (string, error) { return key, nil })
	require.NoError(t, err)
	assert.Equal(t, keys, got)
}

func TestFillBatch_ConcurrentCallersShareOneFetch(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	filler := appcache.NewFiller(store, nil, 4)

	var mu sync.Mutex
	fetches := 0
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, key string) (string, error) {
		mu.Lock()
		fetches++
		first := fetches == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return "v", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = appcache.FillBatch(context.Background(), filler, []string{"sprint:5:issues"}, time.Minute, fetch)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = appcache.FillBatch(context.Background(), filler, []string{"sprint:5:issues"}, time.Minute, fetch)
	}()
	// Give the second caller time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fetches, "concurrent misses on the same key must share one upstream fetch")
}

func TestFillBatch_EmptyKeys(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	filler := appcache.NewFiller(store, nil, 4)

	got, err := appcache.FillBatch(context.Background(), filler, nil, time.Minute,
		func(_ context.Context, key string) (string, error) { return "", errors.New("must not be called") })
	require.NoError(t, err)
	assert.Empty(t, got)
}
