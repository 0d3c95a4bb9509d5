// Package memstore is an in-process implementation of the session, trust and
// passkey stores. It enforces the same unique keys as the SQL schema, which makes
// it suitable for tests and single-instance development servers.
//
//	store := memstore.New()
//	reg := session.NewRegistry(store)
//	trusted := trust.New(store)
//	verifier := passkey.New(store, codecs.PasskeyChallenge)
package memstore
