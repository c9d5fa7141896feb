package redis

import (
	"context"
	"time"

	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// scanBatchSize bounds each SCAN page during pattern deletes.
const scanBatchSize = 200

// RedisStore implements ports.CacheStore over a Redis client.
type RedisStore struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
}

// NewRedisStore creates a new Redis-backed cache store.
func NewRedisStore(r redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{r: r, prefix: prefix}
}

func (c *RedisStore) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements CacheStore.Get.
func (c *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements CacheStore.Set.
func (c *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.r.Set(ctx, c.namespaced(key), value, ttl).Err()
}

// GetMany resolves all keys with a single MGET. Missing keys are absent
// from the result.
func (c *RedisStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = c.namespaced(key)
	}
	values, err := c.r.MGet(ctx, namespaced...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, v := range values {
		switch b := v.(type) {
		case string:
			out[keys[i]] = []byte(b)
		case []byte:
			out[keys[i]] = b
		}
	}
	return out, nil
}

// SetMany writes all items under one TTL in a single pipelined round-trip.
// MSET cannot carry expirations, so a pipeline of SETs stands in for it.
func (c *RedisStore) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	pipe := c.r.Pipeline()
	for key, value := range items {
		pipe.Set(ctx, c.namespaced(key), value, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Delete implements CacheStore.Delete.
func (c *RedisStore) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, c.namespaced(key)).Err()
}

// DeletePattern removes every key matching the glob pattern using SCAN so
// the server is never blocked by a KEYS call.
func (c *RedisStore) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	match := c.namespaced(pattern)
	for {
		keys, next, err := c.r.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.r.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

var _ ports.CacheStore = (*RedisStore)(nil)
