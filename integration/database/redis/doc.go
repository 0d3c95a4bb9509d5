// Package redis connects to Redis and provides the Redis-backed pieces of the
// auth core that must be shared between instances:
//
//   - Connect and Healthcheck manage the client
//   - NonceGuard records consumed ticket nonces so exchange and passkey tickets
//     are accepted once across the whole fleet
//   - RateLimitStore keeps token buckets for pkg/ratelimiter
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	svc, err := auth.New(authCfg, stores, auth.WithGuard(redis.NewNonceGuard(client)))
//
// Connection URLs use the redis:// or rediss:// schemes.
package redis
