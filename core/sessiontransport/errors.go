package sessiontransport

import "errors"

var (
	// ErrNoSession is returned when the request carries no session cookie.
	ErrNoSession = errors.New("sessiontransport: no session cookie")

	// ErrBindMismatch is returned when an enabled bind does not match the request.
	ErrBindMismatch = errors.New("sessiontransport: session bind mismatch")

	// ErrLegacyRejected is returned for pre-bind payloads when legacy sessions are disabled.
	ErrLegacyRejected = errors.New("sessiontransport: legacy session rejected")

	// ErrInvalidClaims is returned when Issue is called without user id or email.
	ErrInvalidClaims = errors.New("sessiontransport: user id and email are required")

	// ErrNoKey is returned when a signing or bind key is missing.
	ErrNoKey = errors.New("sessiontransport: signing keys are required")
)
