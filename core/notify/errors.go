package notify

import "errors"

var (
	ErrInvalidMessage = errors.New("notify: invalid message")
	ErrFailedToSend   = errors.New("notify: failed to send")
	ErrInvalidConfig  = errors.New("notify: invalid configuration")
)

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}
