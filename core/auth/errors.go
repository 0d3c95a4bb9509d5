package auth

import "errors"

// Public error codes.
const (
	CodeInvalidTicket  = "invalid_ticket"
	CodeSessionInvalid = "session_invalid"
	CodeStepUpFailed   = "step_up_failed"
	CodeUnavailable    = "passkey_unavailable"
	CodeDeliveryFailed = "code_delivery_failed"
	CodeTooManyTries   = "too_many_attempts"
)

var (
	ErrUnauthenticated     = errors.New("auth: not authenticated")
	ErrInvalidLogin        = errors.New("auth: user id and email are required")
	ErrInvalidTicket       = errors.New("auth: invalid ticket")
	ErrExchangeUnavailable = errors.New("auth: cross-host exchange requires host-only cookies")
	ErrNoNotifier          = errors.New("auth: email codes require a notifier")
	ErrCodeMismatch        = errors.New("auth: verification code does not match")
	ErrTooManyAttempts     = errors.New("auth: too many verification attempts")
)
