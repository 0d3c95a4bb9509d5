// Package passkey verifies WebAuthn assertions used as a second factor.
//
// The flow has two phases, both gated behind a valid two-factor ticket:
//
//	res, err := v.Start(ctx, pending, "https://app.example.com")
//	// send res.Challenge and res.AllowCredentials to navigator.credentials.get,
//	// keep res.Ticket for the finish call
//
//	pending, err := v.Finish(ctx, res.Ticket, assertion)
//
// Start fails with ErrNoCredentials when the user has no passkeys, which callers
// treat as "passkey step-up unavailable". The relying party id is derived from the
// origin host with ResolveRPID: subdomains of a configured apex collapse to the
// apex and localhost-family hosts collapse to "localhost".
//
// Finish checks, in order: ceremony type, challenge, origin, credential id, rpIdHash
// and user presence, the assertion signature against the stored COSE public key,
// then the signature counter. The counter must not go backwards; the stored value is
// advanced to the observed one on success.
package passkey
