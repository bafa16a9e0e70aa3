package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"konnekt/internal/metrics"
	"konnekt/internal/model"
)

// DefaultCounterTTL is how long a recomputed counter lives in the cache.
const DefaultCounterTTL = time.Hour

// RecomputeFunc returns the authoritative value of a counter.
type RecomputeFunc func(ctx context.Context) (int64, error)

// Counter is the cache-aside protocol shared by every engagement counter.
// The cache is never the source of truth: every method can fall back to recompute.
type Counter interface {
	// Get returns the cached value (zero included). On a miss it recomputes,
	// seeds the cache with the TTL and returns the fresh value.
	Get(ctx context.Context, key string, recompute RecomputeFunc) (int64, error)

	// Adjust atomically adds delta when the key exists. When it does not, the
	// counter is recomputed and stored instead: a missing key is never incremented.
	// recompute must observe the committed change.
	Adjust(ctx context.Context, key string, delta int64, recompute RecomputeFunc) (int64, error)

	// Invalidate deletes every key starting with prefix.
	Invalidate(ctx context.Context, prefix string) error

	// Delete removes individual keys.
	Delete(ctx context.Context, keys ...string) error
}

// StatusCache caches a user's reaction to a subject.
type StatusCache interface {
	// ReactionStatus returns the cached reaction, "" for a cached "no reaction",
	// and found=false on a miss.
	ReactionStatus(ctx context.Context, key string) (model.ReactionType, bool, error)
	SetReactionStatus(ctx context.Context, key string, t model.ReactionType) error
}

// adjustScript increments only an existing key. A negative result means the cached
// baseline was wrong, so the key is dropped and the caller reseeds it.
var adjustScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local v = redis.call('INCRBY', KEYS[1], ARGV[1])
if v < 0 then
	redis.call('DEL', KEYS[1])
	return false
end
return v
`)

// RedisCounter implements Counter and StatusCache on Redis strings.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCounter creates a RedisCounter. ttl <= 0 selects DefaultCounterTTL.
func NewCounter(client *redis.Client, ttl time.Duration) *RedisCounter {
	if ttl <= 0 {
		ttl = DefaultCounterTTL
	}
	return &RedisCounter{client: client, ttl: ttl}
}

// Get implements the read half of the protocol.
func (c *RedisCounter) Get(ctx context.Context, key string, recompute RecomputeFunc) (int64, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err == nil {
		metrics.CounterCacheRequests.WithLabelValues("hit").Inc()
		return val, nil
	}

	if errors.Is(err, redis.Nil) {
		metrics.CounterCacheRequests.WithLabelValues("miss").Inc()
	} else {
		// Unreachable or corrupted cache: serve from the store.
		metrics.CounterCacheRequests.WithLabelValues("error").Inc()
		log.Printf("[CounterCache] Get FAILED: key=%s err=%v (falling back to store)", key, err)
	}

	// Concurrent misses on one key share a single authoritative count.
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		n, err := recompute(ctx)
		if err != nil {
			return int64(0), err
		}
		// SETNX: a concurrent Adjust may already have stored a fresher value.
		if setErr := c.client.SetNX(ctx, key, n, c.ttl).Err(); setErr != nil {
			log.Printf("[CounterCache] Seed FAILED: key=%s err=%v", key, setErr)
		}
		return n, nil
	})
	if err != nil {
		return 0, fmt.Errorf("recompute %s: %w", key, err)
	}

	n := v.(int64)
	log.Printf("[CounterCache] Get MISS: key=%s value=%d shared=%t", key, n, shared)
	return n, nil
}

// Adjust implements the write half of the protocol.
func (c *RedisCounter) Adjust(ctx context.Context, key string, delta int64, recompute RecomputeFunc) (int64, error) {
	val, err := adjustScript.Run(ctx, c.client, []string{key}, delta).Int64()
	if err == nil {
		metrics.CounterCacheRequests.WithLabelValues("adjust").Inc()
		log.Printf("[CounterCache] Adjust OK: key=%s delta=%d value=%d", key, delta, val)
		return val, nil
	}

	if !errors.Is(err, redis.Nil) {
		metrics.CounterCacheRequests.WithLabelValues("error").Inc()
		log.Printf("[CounterCache] Adjust FAILED: key=%s delta=%d err=%v", key, delta, err)
	}

	n, err := recompute(ctx)
	if err != nil {
		return 0, fmt.Errorf("recompute %s: %w", key, err)
	}

	metrics.CounterCacheRequests.WithLabelValues("reseed").Inc()
	if setErr := c.client.Set(ctx, key, n, c.ttl).Err(); setErr != nil {
		log.Printf("[CounterCache] Reseed FAILED: key=%s err=%v", key, setErr)
	} else {
		log.Printf("[CounterCache] Reseed OK: key=%s value=%d", key, n)
	}
	return n, nil
}

// Invalidate scans for prefix* and deletes matches in batches.
func (c *RedisCounter) Invalidate(ctx context.Context, prefix string) error {
	startTime := time.Now()
	var cursor uint64
	var removed int

	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			log.Printf("[CounterCache] Invalidate FAILED: prefix=%s err=%v", prefix, err)
			return fmt.Errorf("scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				log.Printf("[CounterCache] Invalidate FAILED: prefix=%s err=%v", prefix, err)
				return fmt.Errorf("delete %s: %w", prefix, err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Printf("[CounterCache] Invalidate OK: prefix=%s removed=%d duration=%v", prefix, removed, time.Since(startTime))
	return nil
}

// Delete removes the given keys.
func (c *RedisCounter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// ReactionStatus reads a cached per-user reaction.
func (c *RedisCounter) ReactionStatus(ctx context.Context, key string) (model.ReactionType, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get status: %w", err)
	}
	if val == statusNone {
		return "", true, nil
	}
	return model.ReactionType(val), true, nil
}

// SetReactionStatus caches a per-user reaction; "" caches the absence of one.
func (c *RedisCounter) SetReactionStatus(ctx context.Context, key string, t model.ReactionType) error {
	val := string(t)
	if val == "" {
		val = statusNone
	}
	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}
