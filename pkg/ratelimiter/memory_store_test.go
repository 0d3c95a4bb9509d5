package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimiter"
)

// stepUp mirrors the step-up endpoint budget: five tries, one back per minute.
var stepUp = ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Minute}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStepUpBucket(t *testing.T) (*ratelimiter.Bucket, *ratelimiter.MemoryStore, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreClock(clk.Now))
	tb, err := ratelimiter.NewBucket(store, stepUp)
	require.NoError(t, err)
	return tb, store, clk
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("client ips under the step-up prefix have separate budgets", func(t *testing.T) {
		t.Parallel()
		tb, store, _ := newStepUpBucket(t)

		for range stepUp.Capacity {
			res, err := tb.Allow(ctx, "stepup:203.0.113.7")
			require.NoError(t, err)
			require.True(t, res.Allowed())
		}
		res, err := tb.Allow(ctx, "stepup:203.0.113.7")
		require.NoError(t, err)
		assert.False(t, res.Allowed())

		res, err = tb.Allow(ctx, "stepup:198.51.100.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, stepUp.Capacity-1, res.Remaining)

		res, err = tb.Allow(ctx, "login:203.0.113.7")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 3, store.Len())
	})

	t.Run("denied requests do not dig the bucket deeper", func(t *testing.T) {
		t.Parallel()
		tb, _, clk := newStepUpBucket(t)
		key := "stepup:203.0.113.7"

		_, err := tb.AllowN(ctx, key, stepUp.Capacity)
		require.NoError(t, err)
		for range 20 {
			res, err := tb.Allow(ctx, key)
			require.NoError(t, err)
			require.False(t, res.Allowed())
		}

		status, err := tb.Status(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 0, status.Remaining)

		// One refill interval is enough to get back in despite the hammering.
		clk.Advance(stepUp.RefillInterval)
		res, err := tb.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("the clock drives refills and the retry hint", func(t *testing.T) {
		t.Parallel()
		tb, _, clk := newStepUpBucket(t)
		key := "stepup:203.0.113.7"

		_, err := tb.AllowN(ctx, key, stepUp.Capacity)
		require.NoError(t, err)

		clk.Advance(30 * time.Second)
		res, err := tb.Allow(ctx, key)
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, clk.Now().Add(30*time.Second), res.ResetAt)

		clk.Advance(2*time.Minute + 30*time.Second)
		status, err := tb.Status(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 3, status.Remaining)

		// Long idle periods refill to capacity and no further.
		clk.Advance(24 * time.Hour)
		status, err = tb.Status(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, stepUp.Capacity, status.Remaining)
	})

	t.Run("idle buckets are forgotten", func(t *testing.T) {
		t.Parallel()
		store := ratelimiter.NewMemoryStore(ratelimiter.WithIdleTTL(20 * time.Millisecond))

		left, _, err := store.ConsumeTokens(ctx, "stepup:203.0.113.7", stepUp.Capacity, stepUp)
		require.NoError(t, err)
		require.Equal(t, 0, left)

		time.Sleep(40 * time.Millisecond)
		left, _, err = store.ConsumeTokens(ctx, "stepup:203.0.113.7", 1, stepUp)
		require.NoError(t, err)
		assert.Equal(t, stepUp.Capacity-1, left)
	})

	t.Run("the least recent bucket goes first at capacity", func(t *testing.T) {
		t.Parallel()
		store := ratelimiter.NewMemoryStore(ratelimiter.WithMaxBuckets(2))

		for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
			_, _, err := store.ConsumeTokens(ctx, "stepup:"+ip, 1, stepUp)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, store.Len())

		left, _, err := store.ConsumeTokens(ctx, "stepup:10.0.0.1", 1, stepUp)
		require.NoError(t, err)
		assert.Equal(t, stepUp.Capacity-1, left)
	})

	t.Run("concurrent step-up attempts never exceed the budget", func(t *testing.T) {
		t.Parallel()
		tb, _, _ := newStepUpBucket(t)

		var allowed atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if res, err := tb.Allow(ctx, "stepup:203.0.113.7"); err == nil && res.Allowed() {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(stepUp.Capacity), allowed.Load())
	})

	t.Run("run stops cleanup with the context", func(t *testing.T) {
		t.Parallel()
		store := ratelimiter.NewMemoryStore()
		runCtx, cancel := context.WithCancel(ctx)

		done := make(chan error, 1)
		go func() { done <- store.Run(runCtx)() }()
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("cleanup did not stop")
		}
	})
}
