package handoff

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ErrReplayed is returned when a ticket nonce was already consumed.
var ErrReplayed = errors.New("handoff: ticket already used")

// Guard admits each ticket nonce at most once until the ticket expires.
type Guard interface {
	// Consume records nonce and reports whether this is its first use.
	Consume(ctx context.Context, nonce string, expiresAt time.Time) (bool, error)
}

// Attempts counts uses of a ticket nonce until the ticket expires.
type Attempts interface {
	// Attempt records one use of nonce and returns the number of uses so far.
	Attempt(ctx context.Context, nonce string, expiresAt time.Time) (int, error)
}

// NopGuard admits every nonce.
type NopGuard struct{}

// Consume always reports first use.
func (NopGuard) Consume(context.Context, string, time.Time) (bool, error) { return true, nil }

// MemoryGuard is an in-process Guard backed by ttlcache.
type MemoryGuard struct {
	*MemoryAttempts
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemoryGuard creates a MemoryGuard and starts its cleanup loop.
// Call Close to stop it.
func NewMemoryGuard() *MemoryGuard {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()

	return &MemoryGuard{cache: cache, MemoryAttempts: NewMemoryAttempts()}
}

// Consume implements Guard.
func (g *MemoryGuard) Consume(_ context.Context, nonce string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	_, found := g.cache.GetOrSet(nonce, struct{}{}, ttlcache.WithTTL[string, struct{}](ttl))
	return !found, nil
}

// Close stops the cleanup goroutine.
func (g *MemoryGuard) Close() error {
	g.cache.Stop()
	return nil
}

// MemoryAttemptsCapacity bounds the nonces a MemoryAttempts tracks; the least
// recently used entry is evicted first.
const MemoryAttemptsCapacity = 100_000

// MemoryAttempts is an in-process Attempts. It runs no goroutine: expired
// entries are dropped on access or by capacity eviction.
type MemoryAttempts struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, int]
}

// NewMemoryAttempts creates a MemoryAttempts.
func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{cache: ttlcache.New(
		ttlcache.WithCapacity[string, int](MemoryAttemptsCapacity),
		ttlcache.WithDisableTouchOnHit[string, int](),
	)}
}

// Attempt implements Attempts. An expired ticket reports no attempts left.
func (a *MemoryAttempts) Attempt(_ context.Context, nonce string, expiresAt time.Time) (int, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return math.MaxInt, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	n := 1
	if item := a.cache.Get(nonce); item != nil {
		n = item.Value() + 1
	}
	a.cache.Set(nonce, n, ttl)
	return n, nil
}

// Check consumes nonce through g and maps a repeat use to ErrReplayed.
// A nil guard admits everything.
func Check(ctx context.Context, g Guard, nonce string, expiresAt time.Time) error {
	if g == nil {
		return nil
	}
	ok, err := g.Consume(ctx, nonce, expiresAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReplayed
	}
	return nil
}
