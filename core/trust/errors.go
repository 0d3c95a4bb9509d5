package trust

import "errors"

var (
	// ErrNotFound is returned by a Store when no row matches.
	ErrNotFound = errors.New("trust: token not found")
	// ErrInvalidEmail is returned when the email is empty.
	ErrInvalidEmail = errors.New("trust: email is required")
)
