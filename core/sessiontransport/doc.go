// Package sessiontransport issues and reads the long-lived session cookie.
//
// The cookie value uses the signed wire format from pkg/ticket:
// `base64url(json).base64url(hmac)`, where the JSON payload is
//
//	{userId, email, iat, exp, ver, sid, did?, ua?, ip?}
//
// did, ua and ip are binds: truncated keyed hashes of the device cookie, the user
// agent, and the client IP prefix (/24 for IPv4, /64 for IPv6). Binds are toggled
// independently in Config and recomputed from the current request on every read;
// every enabled bind must match exactly or the session is rejected with
// ErrBindMismatch.
//
// A separate device cookie holds a stable random identifier. It is issued once,
// lives about two years and is never rotated implicitly. It feeds the did bind but is
// never a credential by itself.
//
// # Legacy Payloads
//
// Payloads with ver < 2, or without any bind field while at least one bind is
// enabled, predate binding. They are accepted only when AllowLegacy is set.
//
// # Usage
//
//	tr, err := sessiontransport.New(cookies, sessionKey, bindKey, cfg)
//
//	// after the credential check succeeded
//	p, err := tr.Issue(w, r, sessiontransport.Claims{UserID: id, Email: email})
//
//	// on later requests
//	p, err := tr.Read(r)
//	switch {
//	case errors.Is(err, sessiontransport.ErrNoSession):
//	case errors.Is(err, sessiontransport.ErrBindMismatch):
//	}
//
// Issue is all-or-nothing: every value is computed and size-checked before the
// first Set-Cookie header is written.
package sessiontransport
