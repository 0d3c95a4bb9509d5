package session

import "errors"

var (
	// ErrNotFound is returned by a Store when no row matches the key.
	ErrNotFound = errors.New("session: record not found")
	// ErrConflict is returned by a Store when an insert violates a unique constraint.
	ErrConflict = errors.New("session: record already exists")
	// ErrSchemaMissing is returned by a Store when its tables are not provisioned.
	ErrSchemaMissing = errors.New("session: storage schema missing")
	// ErrRevoked is returned when the tracked session was revoked.
	ErrRevoked = errors.New("session: revoked")
	// ErrInvalidParams is returned when required identifiers are empty.
	ErrInvalidParams = errors.New("session: invalid parameters")
)

// SoftError marks a failure of the tracking layer that must not block the request.
type SoftError struct {
	Err error
}

func (e *SoftError) Error() string { return "session (soft): " + e.Err.Error() }

func (e *SoftError) Unwrap() error { return e.Err }

// Soft wraps err as a SoftError. Soft(nil) returns nil.
func Soft(err error) error {
	if err == nil {
		return nil
	}
	var se *SoftError
	if errors.As(err, &se) {
		return err
	}
	return &SoftError{Err: err}
}

// IsSoft reports whether err is a soft failure.
func IsSoft(err error) bool {
	var se *SoftError
	return errors.As(err, &se)
}
