package fingerprint

import "errors"

// Components are the inputs of a fingerprint, in hashing order.
type Components struct {
	Seed           string
	Kind           string
	OSFamily       string
	OSVersion      string
	BrowserFamily  string
	BrowserVersion string
	Platform       string
	AcceptLanguage string
	UserAgent      string
}

// Validation errors that can be checked with errors.Is()
var (
	// ErrInvalidFingerprint indicates the stored fingerprint has invalid format.
	ErrInvalidFingerprint = errors.New("invalid fingerprint format")

	// ErrMismatch indicates the fingerprint doesn't match the current components.
	ErrMismatch = errors.New("fingerprint mismatch")
)
