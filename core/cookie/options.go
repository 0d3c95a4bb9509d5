package cookie

import "net/http"

// Options configures cookie attributes.
type Options struct {
	Path     string
	HttpOnly bool
	SameSite http.SameSite
}

// Option is a functional option for configuring a cookie definition.
type Option func(*Options)

// WithPath sets the cookie path attribute. Ignored for host-only cookies, which
// must use "/".
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

// WithHTTPOnly controls JavaScript access to the cookie.
func WithHTTPOnly(httpOnly bool) Option {
	return func(o *Options) {
		o.HttpOnly = httpOnly
	}
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(sameSite http.SameSite) Option {
	return func(o *Options) {
		o.SameSite = sameSite
	}
}

func applyOptions(base Options, opts []Option) Options {
	result := base
	for _, opt := range opts {
		opt(&result)
	}
	return result
}
