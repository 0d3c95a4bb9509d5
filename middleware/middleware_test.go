package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/middleware"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimiter"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestChain(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	serve(middleware.Chain(ok, mw("a"), mw("b"), mw("c")), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	t.Run("stores the remote address in context", func(t *testing.T) {
		t.Parallel()
		var got string
		h := middleware.ClientIP()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = middleware.GetClientIP(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.168.1.100:54321"
		serve(h, r)
		assert.Equal(t, "192.168.1.100", got)
	})

	t.Run("echoes the ip in a header when asked", func(t *testing.T) {
		t.Parallel()
		h := middleware.ClientIPWithConfig(middleware.ClientIPConfig{StoreInHeader: true})(ok)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		assert.Equal(t, "10.0.0.1", serve(h, r).Header().Get("X-Client-IP"))
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates an id and exposes it", func(t *testing.T) {
		t.Parallel()
		var got string
		h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = middleware.GetRequestID(r.Context())
		}))

		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, got)
		assert.Equal(t, got, rec.Header().Get("X-Request-ID"))
	})

	t.Run("keeps an upstream id when configured", func(t *testing.T) {
		t.Parallel()
		h := middleware.RequestIDWithConfig(middleware.RequestIDConfig{UseExisting: true})(ok)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "abc")
		assert.Equal(t, "abc", serve(h, r).Header().Get("X-Request-ID"))
	})
}

func TestNoStore(t *testing.T) {
	t.Parallel()

	rec := serve(middleware.NoStore()(ok), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	t.Run("strict preset denies framing", func(t *testing.T) {
		t.Parallel()
		rec := serve(middleware.SecurityHeadersStrict()(ok), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("development drops hsts", func(t *testing.T) {
		t.Parallel()
		cfg := middleware.StrictSecurity
		cfg.IsDevelopment = true
		rec := serve(middleware.SecurityHeadersWithConfig(cfg)(ok), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("skip leaves the response alone", func(t *testing.T) {
		t.Parallel()
		cfg := middleware.BalancedSecurity
		cfg.Skip = func(r *http.Request) bool { return r.URL.Path == "/health" }
		rec := serve(middleware.SecurityHeadersWithConfig(cfg)(ok), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, rec.Header().Get("X-Frame-Options"))
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string) (*ratelimiter.Result, error) {
	return nil, ratelimiter.ErrStoreUnavailable
}

func (failingLimiter) AllowN(ctx context.Context, key string, n int) (*ratelimiter.Result, error) {
	return nil, ratelimiter.ErrStoreUnavailable
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	newLimiter := func(t *testing.T) ratelimiter.RateLimiter {
		t.Helper()
		tb, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
			Capacity: 2, RefillRate: 1, RefillInterval: time.Minute,
		})
		require.NoError(t, err)
		return tb
	}

	request := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/auth/passkey/start", nil)
		r.RemoteAddr = ip + ":1000"
		return r
	}

	t.Run("limits per client ip", func(t *testing.T) {
		t.Parallel()
		h := middleware.RateLimit(middleware.RateLimitConfig{Limiter: newLimiter(t), SetHeaders: true})(ok)

		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)
		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)

		rec := serve(h, request("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.2")).Code)
	})

	t.Run("fails closed by default", func(t *testing.T) {
		t.Parallel()
		h := middleware.RateLimit(middleware.RateLimitConfig{Limiter: failingLimiter{}})(ok)
		assert.Equal(t, http.StatusServiceUnavailable, serve(h, request("10.0.0.1")).Code)
	})

	t.Run("fails open when configured", func(t *testing.T) {
		t.Parallel()
		h := middleware.RateLimit(middleware.RateLimitConfig{Limiter: failingLimiter{}, FailOpen: true})(ok)
		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)
	})

	t.Run("panics without limiter", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { middleware.RateLimit(middleware.RateLimitConfig{}) })
	})
}

func TestLogging(t *testing.T) {
	t.Parallel()

	t.Run("logs status and omits the query string", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))
		h := middleware.LoggingWithLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusSeeOther)
		}))

		serve(h, httptest.NewRequest(http.MethodGet, "/auth/exchange?ticket=secret", nil))
		out := buf.String()
		assert.Contains(t, out, `"status_code":303`)
		assert.Contains(t, out, `"path":"/auth/exchange"`)
		assert.NotContains(t, out, "secret")
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))
		h := middleware.LoggingWithLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})
}
