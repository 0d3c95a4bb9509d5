package ticket

import "errors"

var (
	ErrNoSecret         = errors.New("ticket: signing secret is not configured")
	ErrMalformed        = errors.New("ticket: malformed token")
	ErrSignatureInvalid = errors.New("ticket: signature is invalid")
	ErrTypeMismatch     = errors.New("ticket: unexpected ticket type")
	ErrExpired          = errors.New("ticket: token has expired")
	ErrInvalidTTL       = errors.New("ticket: ttl must be positive")
)
