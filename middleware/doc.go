// Package middleware provides net/http middleware for the auth endpoints: client
// IP extraction, request ids, request logging, security headers, no-store caching
// and per-IP rate limiting.
//
// Every middleware has a default constructor and a WithConfig variant. Configs
// accept a Skip function that bypasses the middleware for matching requests.
//
//	h := middleware.Chain(mux,
//		middleware.RequestID(),
//		middleware.ClientIP(),
//		middleware.LoggingWithLogger(log),
//		middleware.SecurityHeaders(),
//	)
//
// Chain applies middleware in the order given, so the first one runs first.
package middleware
