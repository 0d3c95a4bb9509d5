package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimiter"
)

// consumeScript refills and consumes a bucket atomically. It mirrors the memory
// store: tokens may go negative, a negative count refunds.
//
// KEYS[1] bucket hash; ARGV: capacity, refill rate, interval ms, tokens, now ms.
// Returns {remaining, last refill ms}.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local n = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refill')
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  refill = now
end

local intervals = math.floor((now - refill) / interval)
local maxIntervals = math.floor(capacity / rate) + 1
if intervals > maxIntervals then intervals = maxIntervals end
if intervals > 0 then
  tokens = math.min(tokens + intervals * rate, capacity)
  refill = now
end

tokens = math.min(tokens - n, capacity)
redis.call('HSET', KEYS[1], 'tokens', tokens, 'refill', refill)
redis.call('PEXPIRE', KEYS[1], interval * (maxIntervals + 1))
return {tokens, refill}
`)

// RateLimitStore implements ratelimiter.Store on Redis hashes.
type RateLimitStore struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// NewRateLimitStore returns a store whose keys start with prefix.
func NewRateLimitStore(client redis.Scripter, prefix string) *RateLimitStore {
	if prefix == "" {
		prefix = "gk:rl:"
	}
	return &RateLimitStore{client: client, prefix: prefix, now: time.Now}
}

// ConsumeTokens implements ratelimiter.Store.
func (s *RateLimitStore) ConsumeTokens(ctx context.Context, key string, tokens int, config ratelimiter.Config) (int, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
		s.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis rate limit: unexpected reply of %d values", len(res))
	}
	return int(res[0]), time.UnixMilli(res[1]).Add(config.RefillInterval), nil
}

// Reset implements ratelimiter.Store.
func (s *RateLimitStore) Reset(ctx context.Context, key string) error {
	if c, ok := s.client.(redis.Cmdable); ok {
		return c.Del(ctx, s.prefix+key).Err()
	}
	return s.client.Eval(ctx, "return redis.call('DEL', KEYS[1])", []string{s.prefix + key}).Err()
}
