package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"konnekt/internal/cache"
	"konnekt/internal/model"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupCounter(t *testing.T) (*miniredis.Miniredis, *cache.RedisCounter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewCounter(client, time.Hour)
}

// store simulates the authoritative count query.
type store struct {
	value int64
	calls atomic.Int64
}

func (s *store) recompute(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return atomic.LoadInt64(&s.value), nil
}

// =============================================================================
// Get
// =============================================================================

func TestCounter_GetMissSeedsCache(t *testing.T) {
	mr, counter := setupCounter(t)
	ctx := context.Background()
	key := cache.CounterKey(model.SubjectPost, 1, model.CounterLikes)
	s := &store{value: 7}

	got, err := counter.Get(ctx, key, s.recompute)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 7 {
		t.Errorf("Get = %d, want 7", got)
	}

	raw, err := mr.Get(key)
	if err != nil || raw != "7" {
		t.Errorf("cached value = %q (%v), want 7", raw, err)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	// Second read is served from the cache.
	s.value = 100
	got, _ = counter.Get(ctx, key, s.recompute)
	if got != 7 {
		t.Errorf("cached Get = %d, want 7", got)
	}
	if s.calls.Load() != 1 {
		t.Errorf("recompute called %d times, want 1", s.calls.Load())
	}
}

func TestCounter_CachedZeroIsAHit(t *testing.T) {
	mr, counter := setupCounter(t)
	key := cache.CounterKey(model.SubjectPost, 2, model.CounterViews)
	mr.Set(key, "0")
	s := &store{value: 99}

	got, err := counter.Get(context.Background(), key, s.recompute)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 0 {
		t.Errorf("Get = %d, want cached 0", got)
	}
	if s.calls.Load() != 0 {
		t.Error("recompute must not run when zero is cached")
	}
}

func TestCounter_ClearedKeyRecomputesSameValue(t *testing.T) {
	mr, counter := setupCounter(t)
	ctx := context.Background()
	key := cache.UserCounterKey(5, model.CounterFriends)
	s := &store{value: 12}

	first, _ := counter.Get(ctx, key, s.recompute)
	mr.Del(key)
	second, _ := counter.Get(ctx, key, s.recompute)

	if first != second || second != 12 {
		t.Errorf("values = %d then %d, want 12 both times", first, second)
	}
}

func TestCounter_GetFallsBackWhenRedisIsDown(t *testing.T) {
	mr, counter := setupCounter(t)
	mr.Close()
	s := &store{value: 3}

	got, err := counter.Get(context.Background(), "eng:post:1:likes", s.recompute)
	if err != nil {
		t.Fatalf("Get must degrade to the store, got error: %v", err)
	}
	if got != 3 {
		t.Errorf("Get = %d, want 3", got)
	}
}

func TestCounter_GetPropagatesStoreErrors(t *testing.T) {
	_, counter := setupCounter(t)
	boom := errors.New("db down")

	_, err := counter.Get(context.Background(), "eng:post:1:likes", func(ctx context.Context) (int64, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}

// =============================================================================
// Adjust
// =============================================================================

func TestCounter_AdjustIncrementsExistingKey(t *testing.T) {
	mr, counter := setupCounter(t)
	key := cache.CounterKey(model.SubjectPost, 1, model.CounterLikes)
	mr.Set(key, "4")
	mr.SetTTL(key, 30*time.Minute)
	s := &store{value: 1000}

	got, err := counter.Adjust(context.Background(), key, 1, s.recompute)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if got != 5 {
		t.Errorf("Adjust = %d, want 5", got)
	}
	if s.calls.Load() != 0 {
		t.Error("recompute must not run for an existing key")
	}
	if ttl := mr.TTL(key); ttl != 30*time.Minute {
		t.Errorf("TTL = %v, INCRBY must keep the existing TTL", ttl)
	}
}

// An expired counter must be reseeded from the store, not incremented from zero.
func TestCounter_AdjustAfterExpiryUsesFreshBaseline(t *testing.T) {
	mr, counter := setupCounter(t)
	ctx := context.Background()
	key := cache.CounterKey(model.SubjectPost, 1, model.CounterLikes)
	s := &store{value: 41}

	if _, err := counter.Get(ctx, key, s.recompute); err != nil {
		t.Fatalf("Get: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if mr.Exists(key) {
		t.Fatal("key should have expired")
	}

	// The like is committed before the counter is adjusted.
	s.value = 42
	got, err := counter.Adjust(ctx, key, 1, s.recompute)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if got != 42 {
		t.Errorf("Adjust = %d, want 42 (store baseline)", got)
	}
	raw, _ := mr.Get(key)
	if raw != "42" {
		t.Errorf("cached = %q, want 42", raw)
	}
}

func TestCounter_AdjustBelowZeroReseeds(t *testing.T) {
	mr, counter := setupCounter(t)
	key := cache.CounterKey(model.SubjectComment, 9, model.CounterDislikes)
	mr.Set(key, "0")
	s := &store{value: 0}

	got, err := counter.Adjust(context.Background(), key, -1, s.recompute)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if got != 0 {
		t.Errorf("Adjust = %d, want 0", got)
	}
	if s.calls.Load() != 1 {
		t.Errorf("recompute calls = %d, want 1", s.calls.Load())
	}
}

func TestCounter_ConcurrentAdjustsAreNotLost(t *testing.T) {
	mr, counter := setupCounter(t)
	key := cache.CounterKey(model.SubjectPost, 3, model.CounterViews)
	mr.Set(key, "10")
	s := &store{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := counter.Adjust(context.Background(), key, 1, s.recompute); err != nil {
				t.Errorf("Adjust: %v", err)
			}
		}()
	}
	wg.Wait()

	raw, _ := mr.Get(key)
	if raw != "60" {
		t.Errorf("counter = %s, want 60", raw)
	}
}

// =============================================================================
// Invalidate / status
// =============================================================================

func TestCounter_InvalidateRemovesSubjectNamespace(t *testing.T) {
	mr, counter := setupCounter(t)
	ctx := context.Background()

	mr.Set(cache.CounterKey(model.SubjectComment, 7, model.CounterLikes), "3")
	mr.Set(cache.CounterKey(model.SubjectComment, 7, model.CounterDislikes), "1")
	mr.Set(cache.StatusKey(model.SubjectComment, 7, 42), "like")
	other := cache.CounterKey(model.SubjectComment, 70, model.CounterLikes)
	mr.Set(other, "5")

	if err := counter.Invalidate(ctx, cache.SubjectPrefix(model.SubjectComment, 7)); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	for _, key := range []string{
		cache.CounterKey(model.SubjectComment, 7, model.CounterLikes),
		cache.CounterKey(model.SubjectComment, 7, model.CounterDislikes),
		cache.StatusKey(model.SubjectComment, 7, 42),
	} {
		if mr.Exists(key) {
			t.Errorf("key %s should be gone", key)
		}
	}
	// "eng:comment:70:" must not match the prefix "eng:comment:7:".
	if !mr.Exists(other) {
		t.Errorf("key %s must survive", other)
	}
}

func TestCounter_ReactionStatus(t *testing.T) {
	_, counter := setupCounter(t)
	ctx := context.Background()
	key := cache.StatusKey(model.SubjectPost, 1, 2)

	if _, found, err := counter.ReactionStatus(ctx, key); err != nil || found {
		t.Fatalf("empty cache: found=%t err=%v", found, err)
	}

	if err := counter.SetReactionStatus(ctx, key, ""); err != nil {
		t.Fatalf("SetReactionStatus: %v", err)
	}
	got, found, _ := counter.ReactionStatus(ctx, key)
	if !found || got != "" {
		t.Errorf("cached none: got %q found=%t", got, found)
	}

	counter.SetReactionStatus(ctx, key, model.ReactionDislike)
	got, _, _ = counter.ReactionStatus(ctx, key)
	if got != model.ReactionDislike {
		t.Errorf("got %q, want dislike", got)
	}
}

func TestKeys(t *testing.T) {
	if got := cache.CounterKey(model.SubjectPost, 42, model.CounterLikes); got != "eng:post:42:likes" {
		t.Errorf("CounterKey = %s", got)
	}
	if got := cache.StatusKey(model.SubjectComment, 1, 9); got != "eng:comment:1:status:9" {
		t.Errorf("StatusKey = %s", got)
	}
	if got := cache.UserCounterKey(3, model.CounterFollowers); got != "eng:user:3:followers" {
		t.Errorf("UserCounterKey = %s", got)
	}
}
