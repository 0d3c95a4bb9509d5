package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrCookieNotFound indicates the requested cookie doesn't exist in the request.
	ErrCookieNotFound = errors.New("cookie not found in request")

	// ErrInvalidMode indicates an unknown naming policy.
	ErrInvalidMode = errors.New("cookie: unknown cookie mode")

	// ErrDomainRequired indicates shared-domain mode without a parent domain.
	ErrDomainRequired = errors.New("cookie: shared-domain mode requires a domain")

	// ErrInvalidSameSite indicates an unknown SameSite value in configuration.
	ErrInvalidSameSite = errors.New("cookie: invalid SameSite value")
)

// ErrCookieTooLarge indicates the cookie exceeds the maximum allowed size.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

// Error implements the error interface.
func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
