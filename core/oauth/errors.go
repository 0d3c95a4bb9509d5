package oauth

import "errors"

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrMissingState    = errors.New("oauth: missing state")
	ErrStateMismatch   = errors.New("oauth: state parameter and cookie differ")
	ErrInvalidState    = errors.New("oauth: invalid state")
	ErrMissingCode     = errors.New("oauth: missing authorization code")
	ErrProviderDenied  = errors.New("oauth: provider returned an error")
	ErrExchangeFailed  = errors.New("oauth: code exchange failed")
	ErrProfileFailed   = errors.New("oauth: profile fetch failed")
)
