package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/agileview/reporting/go/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sprint:1:issues", []byte("payload"), time.Minute))

	b, ok, err := store.Get(ctx, "sprint:1:issues")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(b))

	_, ok, err = store.Get(ctx, "sprint:2:issues")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpiredEntryIsAMiss(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sprint:1:state", []byte("active"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := store.Get(ctx, "sprint:1:state")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_GetManySkipsMissesAndExpired(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	out, err := store.GetMany(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, out)
}

func TestMemoryStore_SetMany(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SetMany(ctx, map[string][]byte{
		"sprint:1:issues": []byte("a"),
		"sprint:2:issues": []byte("b"),
	}, time.Minute))

	out, err := store.GetMany(ctx, []string{"sprint:1:issues", "sprint:2:issues"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_DeletePattern(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sprint:42:issues", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "sprint:42:metrics:velocity", []byte("b"), time.Minute))
	require.NoError(t, store.Set(ctx, "sprint:43:issues", []byte("c"), time.Minute))

	require.NoError(t, store.DeletePattern(ctx, "sprint:42:*"))

	_, ok, _ := store.Get(ctx, "sprint:42:issues")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "sprint:42:metrics:velocity")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "sprint:43:issues")
	assert.True(t, ok, "other sprints must not be swept up by the pattern")
}
