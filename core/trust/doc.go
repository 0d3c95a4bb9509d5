// Package trust issues and checks trusted-device tokens.
//
// A trusted-device token lets a recognized browser skip step-up authentication on
// later logins for the same email. The raw token lives only in the client cookie;
// the store keeps its SHA-256 hash with a bounded expiry.
//
//	svc := trust.New(store, trust.WithDays(30))
//	tok, exp, err := svc.Issue(ctx, "jane@example.com")
//	ok, err := svc.Check(ctx, "jane@example.com", tok)
//
// A token is valid while now is strictly before its expiry and it has not been
// revoked. The lifetime defaults to 15 days and is clamped to [1, 60].
package trust
