package middleware

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
)

type clientIPContextKey struct{}

type ClientIPConfig struct {
	Skip SkipFunc
	// HeaderName is the response header the IP is echoed in when StoreInHeader is set.
	HeaderName    string
	StoreInHeader bool
}

// ClientIP stores the resolved client IP in the request context.
func ClientIP() Middleware {
	return ClientIPWithConfig(ClientIPConfig{})
}

func ClientIPWithConfig(cfg ClientIPConfig) Middleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientip.GetIP(r)
			if cfg.StoreInHeader && ip != "" {
				w.Header().Set(cfg.HeaderName, ip)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPContextKey{}, ip)))
		})
	}
}

// GetClientIP returns the IP stored by ClientIP.
func GetClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok && ip != ""
}
