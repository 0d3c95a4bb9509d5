// Package handoff defines the closed set of tickets exchanged between steps of the
// login flow, and optional replay guards for endpoints that consume them.
//
// Every variant shares the envelope from pkg/ticket and carries only its own fields:
//
//	OAuthState        "oauth_state"        10m  next, intent, provider, PKCE verifier
//	TwoFactor         "two_factor"          8m  pending identity awaiting step-up
//	PasskeyChallenge  "passkey_challenge"   5m  TwoFactor fields + challenge, origin, rpId
//	Exchange          "exchange"            5m  identity transplanted to another host
//
// Codecs builds one immutable codec per variant from a single ticket key.
//
// # Replay Guards
//
// Tickets are not single-use by themselves: a replay within the TTL is accepted unless
// the consumer deletes supporting state. Endpoints that need stronger guarantees pass
// the ticket nonce to a Guard, which admits each nonce once until the ticket expires.
// MemoryGuard (ttlcache) suits single-instance deployments; the Redis guard in
// integration/database/redis suits fleets.
package handoff
