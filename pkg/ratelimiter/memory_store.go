package ratelimiter

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Defaults for NewMemoryStore.
const (
	DefaultIdleTTL    = time.Hour
	DefaultMaxBuckets = 100_000
)

type tokens struct {
	left     int
	refilled time.Time
}

// take refills t for the intervals elapsed since the last refill and subtracts n.
func (t *tokens) take(now time.Time, n int, cfg Config) (int, time.Time) {
	if steps := now.Sub(t.refilled) / cfg.RefillInterval; steps > 0 {
		// A full refill needs at most this many steps; capping avoids overflow
		// for buckets idle for a long time.
		if full := time.Duration(cfg.Capacity/cfg.RefillRate + 1); steps >= full {
			t.left = cfg.Capacity
			t.refilled = now
		} else {
			t.left = min(t.left+int(steps)*cfg.RefillRate, cfg.Capacity)
			t.refilled = t.refilled.Add(steps * cfg.RefillInterval)
		}
	}
	t.left = min(t.left-n, cfg.Capacity)
	return t.left, t.refilled.Add(cfg.RefillInterval)
}

// MemoryStore keeps buckets in process memory, so limits apply per instance.
// Buckets untouched for the idle TTL are dropped, and the least recently used
// bucket is evicted once MaxBuckets are held.
type MemoryStore struct {
	mu      sync.Mutex
	buckets *ttlcache.Cache[string, *tokens]
	idle    time.Duration
	max     uint64
	logger  *slog.Logger
	now     func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithIdleTTL sets how long an untouched bucket is kept.
func WithIdleTTL(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if d > 0 {
			ms.idle = d
		}
	}
}

// WithMaxBuckets bounds the number of tracked keys.
func WithMaxBuckets(n uint64) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if n > 0 {
			ms.max = n
		}
	}
}

// WithMemoryStoreLogger sets the logger for evictions.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithMemoryStoreClock overrides the time source used for refills.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a MemoryStore. Expired buckets are also dropped on
// access; Run adds periodic cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		idle:   DefaultIdleTTL,
		max:    DefaultMaxBuckets,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.buckets = ttlcache.New(
		ttlcache.WithTTL[string, *tokens](ms.idle),
		ttlcache.WithCapacity[string, *tokens](ms.max),
	)
	ms.buckets.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *tokens]) {
		if reason == ttlcache.EvictionReasonCapacityReached {
			ms.logger.WarnContext(ctx, "rate limit bucket evicted at capacity", slog.String("key", item.Key()))
		}
	})
	return ms
}

// ConsumeTokens implements Store. Negative n returns tokens.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, n int, cfg Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	var t *tokens
	if item := ms.buckets.Get(key); item != nil {
		t = item.Value()
	} else {
		t = &tokens{left: cfg.Capacity, refilled: now}
		ms.buckets.Set(key, t, ttlcache.DefaultTTL)
	}

	left, resetAt := t.take(now, n, cfg)
	return left, resetAt, nil
}

// Reset implements Store.
func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.buckets.Delete(key)
	return nil
}

// Len returns the number of tracked buckets.
func (ms *MemoryStore) Len() int { return ms.buckets.Len() }

// Run returns an errgroup-compatible function that removes idle buckets until
// ctx is canceled.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		go func() {
			<-ctx.Done()
			ms.buckets.Stop()
		}()
		ms.buckets.Start()
		return nil
	}
}
