package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/core/sessiontransport"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

// RequireSession rejects requests without a valid session. Navigations are
// redirected to the login path with error=session_invalid; other requests get 401.
// Cookies that failed for a reason other than absence are cleared.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Authenticate(r.Context(), r)
		if err != nil {
			s.reject(w, r, err)
			return
		}
		noStore(w)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (s *Service) reject(w http.ResponseWriter, r *http.Request, err error) {
	noStore(w)
	if !errors.Is(err, sessiontransport.ErrNoSession) {
		s.log.InfoContext(r.Context(), "session rejected", logger.Reason(rejectReason(err)), logger.Error(err))
		s.transport.Clear(w)
	}

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		http.Redirect(w, r, withError(s.cfg.LoginPath, CodeSessionInvalid), http.StatusSeeOther)
		return
	}
	writeError(w, http.StatusUnauthorized, CodeSessionInvalid)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, sessiontransport.ErrBindMismatch):
		return "bind_mismatch"
	case errors.Is(err, session.ErrRevoked):
		return "revoked"
	case errors.Is(err, ticket.ErrExpired):
		return "expired"
	case errors.Is(err, ticket.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, sessiontransport.ErrLegacyRejected):
		return "legacy"
	default:
		return "malformed"
	}
}

func withError(path, code string) string {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func noStore(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
