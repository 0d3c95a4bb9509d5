// Package auth ties the session core together: it issues the session cookie after a
// successful credential check, records the login in the registry, gates logins
// behind step-up authentication, and authenticates later requests.
//
// # Login
//
// Credential checks (password, email or SMS code, OAuth profile) happen outside
// this package. Once one succeeds the caller either completes the login directly
// or asks for step-up:
//
//	out, err := svc.Login(ctx, w, r, auth.Login{UserID: id, Email: email, Method: "oauth"}, needs2FA)
//	if out.TwoFactorTicket != "" {
//		// send the user to the second factor with the ticket
//	}
//
// CompleteLogin signs and attaches the session cookie first and only then writes
// the device and session rows. Registry failures are logged and never fail the
// login.
//
// # Step-up
//
// A two-factor ticket carries the pending login. The passkey handlers run the
// WebAuthn ceremony against it; CompleteStepUp finishes the login and, when the
// user asked to remember the device, issues a trusted-device cookie that lets
// later logins for the same email skip step-up until it expires.
//
// # Requests
//
// Authenticate verifies the cookie (signature, expiry, binds) and consults the
// registry. RequireSession wraps handlers and stores the Principal in the request
// context. Bind mismatches and revoked sessions clear the cookie.
//
// # Cross-host
//
// Under host-only cookies the login host cannot set a cookie for an application
// host. ExchangeURL mints a one-shot exchange ticket for the target's exchange
// endpoint, which Service serves through ExchangeHandler.
//
// Users only ever see the generic codes invalid_ticket, session_invalid and
// step_up_failed.
package auth
