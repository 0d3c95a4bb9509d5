package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
	"github.com/dmitrymomot/gatekeeper/core/passkey"
)

const maxBodyBytes = 64 << 10

// Accounts maps a verified OAuth profile to a local user. It reports whether the
// login needs step-up authentication.
type Accounts interface {
	ResolveOAuth(ctx context.Context, provider string, p oauth.Profile) (Login, bool, error)
}

type passkeyStartRequest struct {
	TwoFactorTicket string `json:"twoFactorTicket"`
}

type passkeyFinishRequest struct {
	Ticket    string            `json:"ticket"`
	Assertion passkey.Assertion `json:"assertion"`
}

type finishResponse struct {
	Next string `json:"next"`
}

// PasskeyStartHandler serves POST {"twoFactorTicket"} and answers with the
// WebAuthn request options and a challenge ticket.
func (s *Service) PasskeyStartHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)
		if s.passkeys == nil {
			writeError(w, http.StatusNotFound, CodeUnavailable)
			return
		}

		var req passkeyStartRequest
		if !decode(w, r, &req) {
			return
		}
		if req.TwoFactorTicket == "" {
			req.TwoFactorTicket = r.URL.Query().Get("twoFactorTicket")
		}

		pending, err := s.PendingLogin(req.TwoFactorTicket)
		if err != nil {
			s.log.InfoContext(r.Context(), "passkey start rejected", logger.Error(err))
			writeError(w, http.StatusBadRequest, CodeInvalidTicket)
			return
		}

		res, err := s.passkeys.Start(r.Context(), pending, requestOrigin(r))
		switch {
		case errors.Is(err, passkey.ErrNoCredentials):
			writeError(w, http.StatusConflict, CodeUnavailable)
			return
		case err != nil:
			s.log.WarnContext(r.Context(), "passkey start failed", logger.UserID(pending.UserID), logger.Error(err))
			writeError(w, http.StatusBadRequest, CodeStepUpFailed)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// PasskeyFinishHandler serves POST {"ticket","assertion"}. On success the session
// cookie is issued and the response names the next location.
func (s *Service) PasskeyFinishHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)
		if s.passkeys == nil {
			writeError(w, http.StatusNotFound, CodeUnavailable)
			return
		}

		var req passkeyFinishRequest
		if !decode(w, r, &req) {
			return
		}

		pending, err := s.passkeys.Finish(r.Context(), req.Ticket, req.Assertion)
		if err != nil {
			s.log.InfoContext(r.Context(), "passkey assertion rejected", logger.Error(err))
			writeError(w, http.StatusUnauthorized, CodeStepUpFailed)
			return
		}

		if _, err := s.CompleteStepUp(r.Context(), w, r, pending); err != nil {
			s.log.ErrorContext(r.Context(), "session issue failed", logger.UserID(pending.UserID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, CodeStepUpFailed)
			return
		}
		writeJSON(w, http.StatusOK, finishResponse{Next: s.NextLocation(r.Context(), r, pendingLogin(pending))})
	})
}

// OAuthBeginHandler serves GET ?provider=&next=&intent= and redirects to the provider.
func (s *Service) OAuthBeginHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)
		q := r.URL.Query()
		intent := q.Get("intent")
		if intent == "" {
			intent = "login"
		}
		// The device cookie must exist before the provider round trip so the
		// session issued on return binds to it.
		if _, err := s.transport.EnsureDevice(w, r); err != nil {
			s.log.WarnContext(r.Context(), "device cookie not issued", logger.Error(err))
		}
		authURL, err := s.oauth.Begin(w, r, q.Get("provider"), s.SafeNext(q.Get("next"), "/"), intent)
		if err != nil {
			s.log.InfoContext(r.Context(), "oauth begin failed", logger.Error(err))
			http.Redirect(w, r, withError(s.cfg.LoginPath, CodeInvalidTicket), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	})
}

// OAuthCallbackHandler completes an OAuth login. Profiles are loaded with the
// fetcher registered for the provider and mapped to a user by accounts. Logins
// that need step-up are sent to the step-up path with a two-factor ticket unless a
// trusted-device cookie lets them skip it.
func (s *Service) OAuthCallbackHandler(fetchers map[string]oauth.ProfileFetcher, accounts Accounts) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)
		ctx := r.Context()
		fail := func(msg string, err error) {
			s.log.InfoContext(ctx, msg, logger.Error(err))
			http.Redirect(w, r, withError(s.cfg.LoginPath, CodeInvalidTicket), http.StatusSeeOther)
		}

		res, err := s.oauth.Callback(w, r)
		if err != nil {
			fail("oauth callback rejected", err)
			return
		}
		fetcher, ok := fetchers[res.Provider]
		if !ok {
			fail("oauth profile fetcher missing", oauth.ErrUnknownProvider)
			return
		}

		fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		profile, err := fetcher.FetchProfile(fctx, res.Config, res.Token)
		cancel()
		if err != nil {
			fail("oauth profile fetch failed", err)
			return
		}

		login, stepUp, err := accounts.ResolveOAuth(ctx, res.Provider, profile)
		if err != nil {
			fail("oauth account resolution failed", err)
			return
		}
		login.Method = "oauth"
		if login.Flow == "" {
			login.Flow = res.Provider
		}
		login.Next = s.SafeNext(res.State.Next, "/")

		out, err := s.Login(ctx, w, r, login, stepUp)
		if err != nil {
			fail("oauth login failed", err)
			return
		}
		if out.TwoFactorTicket != "" {
			http.Redirect(w, r, withParam(s.cfg.StepUpPath, "twoFactorTicket", out.TwoFactorTicket), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, s.NextLocation(ctx, r, login), http.StatusSeeOther)
	})
}

// LogoutHandler revokes the session and redirects to the login path.
func (s *Service) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)
		s.Logout(r.Context(), w, r)
		http.Redirect(w, r, s.cfg.LoginPath, http.StatusSeeOther)
	})
}

// ExchangeHandler serves the cross-host exchange endpoint.
func (s *Service) ExchangeHandler() http.Handler { return s.exchange }

type sessionResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	SID       string    `json:"sid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionHandler answers with the current principal. Wrap it with RequireSession.
func (s *Service) SessionHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeSessionInvalid)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{UserID: p.UserID, Email: p.Email, SID: p.SID, ExpiresAt: p.ExpiresAt})
	})
}

type deviceResponse struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Kind         string    `json:"kind"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	LastIP       string    `json:"lastIp,omitempty"`
	LastLocation string    `json:"lastLocation,omitempty"`
	LoginCount   int       `json:"loginCount"`
}

// DevicesHandler lists the caller's devices. Wrap it with RequireSession.
func (s *Service) DevicesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeSessionInvalid)
			return
		}
		devices, err := s.registry.ListDevices(r.Context(), p.UserID)
		if err != nil {
			s.log.WarnContext(r.Context(), "list devices failed", logger.UserID(p.UserID), logger.Error(err))
			devices = nil
		}
		out := make([]deviceResponse, 0, len(devices))
		for _, d := range devices {
			out = append(out, deviceResponse{
				ID:           d.ID.String(),
				Label:        d.Label,
				Kind:         d.Kind,
				LastSeenAt:   d.LastSeenAt,
				LastIP:       d.LastIP,
				LastLocation: d.LastLocation,
				LoginCount:   d.LoginCount,
			})
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// requestOrigin prefers the Origin header and falls back to the request's own
// scheme and host.
func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" && o != "null" {
		return o
	}
	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}
	return scheme + "://" + r.Host
}

func withParam(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
