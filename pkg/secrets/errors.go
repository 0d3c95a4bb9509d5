package secrets

import "errors"

var (
	ErrSecretTooShort = errors.New("secrets: application secret must be at least 32 bytes")
	ErrInvalidLength  = errors.New("secrets: length must be positive")
)
