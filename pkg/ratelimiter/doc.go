// Package ratelimiter implements token bucket rate limiting over a pluggable Store.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each request consumes tokens; when it does not fit, the tokens
// are handed back and the Result reports how long to wait.
//
//	store := ratelimiter.NewMemoryStore()
//	g.Go(store.Run(ctx))
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     10,
//		RefillInterval: time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//
//	res, err := limiter.Allow(ctx, clientip.GetIP(r))
//	if err == nil && !res.Allowed() {
//		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter().Seconds())))
//	}
//
// MemoryStore limits a single instance. For limits shared across instances use
// the Redis store from integration/database/redis.
//
// Errors:
//   - ErrInvalidConfig: non-positive capacity, refill rate or interval
//   - ErrInvalidTokenCount: n <= 0 passed to AllowN
//   - ErrStoreUnavailable: wraps a store failure
package ratelimiter
