package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that mws run in order, outermost first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// SkipFunc reports whether a middleware should pass r through untouched.
type SkipFunc func(r *http.Request) bool

func (s SkipFunc) skip(r *http.Request) bool { return s != nil && s(r) }
