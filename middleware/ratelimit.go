package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	Skip    SkipFunc
	Limiter ratelimiter.RateLimiter
	// KeyExtractor selects the bucket for a request (default: client IP).
	KeyExtractor func(r *http.Request) string
	// Prefix namespaces keys so several limiters can share a store.
	Prefix     string
	SetHeaders bool
	// FailOpen lets requests through when the limiter store errors.
	FailOpen bool
	Logger   *slog.Logger
}

// RateLimit rejects requests over the limit with 429 and a Retry-After header.
// Panics if no limiter is provided.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = func(r *http.Request) string {
			if ip, ok := GetClientIP(r.Context()); ok {
				return ip
			}
			return clientip.GetIP(r)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger.With(logger.Component("ratelimit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.Prefix + cfg.KeyExtractor(r)
			result, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limiter unavailable", logger.Error(err))
				if cfg.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				writeStatus(w, http.StatusServiceUnavailable, "unavailable")
				return
			}

			if cfg.SetHeaders {
				setRateLimitHeaders(w, result)
			}
			if !result.Allowed() {
				if s := int(result.RetryAfter().Seconds()); s > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(s))
				} else {
					w.Header().Set("Retry-After", "1")
				}
				log.InfoContext(r.Context(), "rate limited", logger.ClientIP(clientip.GetIP(r)), logger.Path(r.URL.Path))
				writeStatus(w, http.StatusTooManyRequests, "rate_limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *ratelimiter.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeStatus(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
