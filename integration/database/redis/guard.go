package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultNoncePrefix = "gk:nonce:"

// NonceGuard implements handoff.Guard with SET NX and handoff.Attempts with INCR. A nonce key lives until the
// ticket it belongs to expires.
type NonceGuard struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NonceGuardOption configures a NonceGuard.
type NonceGuardOption func(*NonceGuard)

// WithNoncePrefix sets the key prefix.
func WithNoncePrefix(prefix string) NonceGuardOption {
	return func(g *NonceGuard) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// WithNonceClock overrides the time source used to derive key lifetimes.
func WithNonceClock(now func() time.Time) NonceGuardOption {
	return func(g *NonceGuard) {
		if now != nil {
			g.now = now
		}
	}
}

func NewNonceGuard(client redis.Cmdable, opts ...NonceGuardOption) *NonceGuard {
	g := &NonceGuard{client: client, prefix: defaultNoncePrefix, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Consume reports whether nonce is seen for the first time. Expired tickets are
// never admitted.
func (g *NonceGuard) Consume(ctx context.Context, nonce string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(g.now())
	if ttl <= 0 {
		return false, nil
	}
	// Redis rejects sub-millisecond expirations.
	ttl = max(ttl, time.Millisecond)

	ok, err := g.client.SetNX(ctx, g.prefix+nonce, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis nonce guard: %w", err)
	}
	return ok, nil
}

// Attempt implements handoff.Attempts with INCR on a counter that expires with
// the ticket. An expired ticket reports no attempts left.
func (g *NonceGuard) Attempt(ctx context.Context, nonce string, expiresAt time.Time) (int, error) {
	if !expiresAt.After(g.now()) {
		return math.MaxInt, nil
	}

	key := g.prefix + "attempt:" + nonce
	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.PExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis attempt counter: %w", err)
	}
	return int(incr.Val()), nil
}
