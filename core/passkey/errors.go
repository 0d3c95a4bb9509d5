package passkey

import "errors"

var (
	ErrNoCredentials      = errors.New("passkey: no credentials registered")
	ErrInvalidTicket      = errors.New("passkey: invalid challenge ticket")
	ErrInvalidOrigin      = errors.New("passkey: invalid origin")
	ErrMalformedAssertion = errors.New("passkey: malformed assertion")
	ErrCeremonyType       = errors.New("passkey: unexpected ceremony type")
	ErrChallengeMismatch  = errors.New("passkey: challenge mismatch")
	ErrOriginMismatch     = errors.New("passkey: origin mismatch")
	ErrUnknownCredential  = errors.New("passkey: unknown credential")
	ErrRPIDMismatch       = errors.New("passkey: rp id hash mismatch")
	ErrUserNotPresent     = errors.New("passkey: user presence not asserted")
	ErrSignatureInvalid   = errors.New("passkey: signature invalid")
	ErrCounterRegression  = errors.New("passkey: signature counter went backwards")
)
