package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gatekeeper/core/logger"
)

// CheckTimeout bounds each dependency check.
const CheckTimeout = 3 * time.Second

// Readiness answers "READY" when every check passes and 503 otherwise.
func Readiness(log *slog.Logger, checks ...func(context.Context) error) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), CheckTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				log.ErrorContext(r.Context(), "Readiness check failed", logger.Component("health"), logger.Error(err))
				writeText(w, http.StatusServiceUnavailable, "NOT READY")
				return
			}
		}
		writeText(w, http.StatusOK, "READY")
	})
}
