package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/auth"
	"github.com/dmitrymomot/gatekeeper/core/cookie"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/integration/store/memstore"
)

const (
	testSecret = "auth-test-secret-0123456789abcdef0123"
	remoteAddr = "203.0.113.7:52311"
	userAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// jar keeps the cookies a browser would resend.
type jar map[string]*http.Cookie

func (j jar) absorb(rec *httptest.ResponseRecorder) {
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(j, c.Name)
			continue
		}
		j[c.Name] = c
	}
}

func (j jar) request(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.RemoteAddr = remoteAddr
	r.Header.Set("User-Agent", userAgent)
	for _, c := range j {
		r.AddCookie(c)
	}
	return r
}

func (j jar) named(suffix string) (*http.Cookie, bool) {
	for name, c := range j {
		if strings.HasSuffix(name, suffix) {
			return c, true
		}
	}
	return nil, false
}

func newService(t *testing.T) (*auth.Service, *clock, *memstore.Store) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memstore.New()

	cfg := auth.DefaultConfig()
	cfg.Secret = testSecret
	cfg.DeviceSeed = "seed"

	svc, err := auth.New(cfg, auth.Stores{Sessions: store, Trust: store, Passkeys: store}, auth.WithClock(clk.Now))
	require.NoError(t, err)
	return svc, clk, store
}

func jane() auth.Login {
	return auth.Login{UserID: "u1", Email: "Jane@Example.com", FullName: "Jane", Method: "oauth", Flow: "google", Next: "/billing"}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("issues a session and records the device", func(t *testing.T) {
		t.Parallel()
		svc, _, store := newService(t)
		j := jar{}

		rec := httptest.NewRecorder()
		out, err := svc.Login(context.Background(), rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		require.NotNil(t, out.Session)
		assert.Empty(t, out.TwoFactorTicket)
		assert.False(t, out.Bypassed)
		assert.Equal(t, "jane@example.com", out.Session.Email)

		j.absorb(rec)
		_, ok := j.named("session")
		assert.True(t, ok)
		_, ok = j.named("did")
		assert.True(t, ok)

		devices, err := store.ListDevices(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, 1, devices[0].LoginCount)

		rec2, err := store.FindSession(context.Background(), "u1", out.Session.SID)
		require.NoError(t, err)
		assert.Equal(t, devices[0].ID, rec2.DeviceID)
		assert.Equal(t, "oauth", rec2.LoginMethod)
	})

	t.Run("rejects a login without email", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		l := jane()
		l.Email = "  "
		_, err := svc.Login(context.Background(), httptest.NewRecorder(), jar{}.request(http.MethodPost, "/login"), l, false)
		assert.ErrorIs(t, err, auth.ErrInvalidLogin)
	})
}

func TestStepUpTrust(t *testing.T) {
	t.Parallel()

	t.Run("trusted device skips step-up until it expires", func(t *testing.T) {
		t.Parallel()
		svc, clk, _ := newService(t)
		ctx := context.Background()
		j := jar{}

		l := jane()
		l.Remember = true
		out, err := svc.Login(ctx, httptest.NewRecorder(), j.request(http.MethodPost, "/login"), l, true)
		require.NoError(t, err)
		require.NotEmpty(t, out.TwoFactorTicket)
		assert.Nil(t, out.Session)

		pending, err := svc.PendingLogin(out.TwoFactorTicket)
		require.NoError(t, err)
		assert.True(t, pending.Remember)
		assert.Equal(t, "jane@example.com", pending.Email)

		rec := httptest.NewRecorder()
		_, err = svc.CompleteStepUp(ctx, rec, j.request(http.MethodPost, "/2fa"), pending)
		require.NoError(t, err)
		j.absorb(rec)
		_, ok := j.named("tdt")
		require.True(t, ok)

		out, err = svc.Login(ctx, httptest.NewRecorder(), j.request(http.MethodPost, "/login"), jane(), true)
		require.NoError(t, err)
		assert.True(t, out.Bypassed)
		assert.NotNil(t, out.Session)

		clk.Advance(15*24*time.Hour + time.Millisecond)
		out, err = svc.Login(ctx, httptest.NewRecorder(), j.request(http.MethodPost, "/login"), jane(), true)
		require.NoError(t, err)
		assert.False(t, out.Bypassed)
		assert.NotEmpty(t, out.TwoFactorTicket)
	})

	t.Run("trust token is bound to the email", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)
		ctx := context.Background()
		j := jar{}

		l := jane()
		l.Remember = true
		tok, err := svc.BeginStepUp(l)
		require.NoError(t, err)
		pending, err := svc.PendingLogin(tok)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		_, err = svc.CompleteStepUp(ctx, rec, j.request(http.MethodPost, "/2fa"), pending)
		require.NoError(t, err)
		j.absorb(rec)

		assert.True(t, svc.ShouldBypassStepUp(ctx, j.request(http.MethodPost, "/login"), "jane@example.com"))
		assert.False(t, svc.ShouldBypassStepUp(ctx, j.request(http.MethodPost, "/login"), "john@example.com"))
	})

	t.Run("rejects a tampered two-factor ticket", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		tok, err := svc.BeginStepUp(jane())
		require.NoError(t, err)
		_, err = svc.PendingLogin(tok + "x")
		assert.ErrorIs(t, err, auth.ErrInvalidTicket)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("returns the principal of a live session", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)
		ctx := context.Background()
		j := jar{}

		rec := httptest.NewRecorder()
		out, err := svc.Login(ctx, rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		j.absorb(rec)

		p, err := svc.Authenticate(ctx, j.request(http.MethodGet, "/app"))
		require.NoError(t, err)
		assert.Equal(t, "u1", p.UserID)
		assert.Equal(t, out.Session.SID, p.SID)
		assert.True(t, p.Status.Active)
	})

	t.Run("seeding an untracked session links the caller's device", func(t *testing.T) {
		t.Parallel()
		issuer, _, _ := newService(t)
		svc, _, store := newService(t)
		ctx := context.Background()
		j := jar{}

		rec := httptest.NewRecorder()
		out, err := issuer.Login(ctx, rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		j.absorb(rec)

		p, err := svc.Authenticate(ctx, j.request(http.MethodGet, "/app"))
		require.NoError(t, err)
		assert.Equal(t, session.ReasonSeeded, p.Status.Reason)

		devices, err := store.ListDevices(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, devices, 1)
		seeded, err := store.FindSession(ctx, "u1", out.Session.SID)
		require.NoError(t, err)
		assert.Equal(t, devices[0].ID, seeded.DeviceID)
	})

	t.Run("fails after logout even when the old cookie is replayed", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)
		ctx := context.Background()
		j := jar{}

		rec := httptest.NewRecorder()
		_, err := svc.Login(ctx, rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		j.absorb(rec)

		out := httptest.NewRecorder()
		svc.Logout(ctx, out, j.request(http.MethodPost, "/logout"))

		_, err = svc.Authenticate(ctx, j.request(http.MethodGet, "/app"))
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		assert.ErrorIs(t, err, session.ErrRevoked)
	})

	t.Run("fails from another network", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)
		ctx := context.Background()
		j := jar{}

		rec := httptest.NewRecorder()
		_, err := svc.Login(ctx, rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		j.absorb(rec)

		r := j.request(http.MethodGet, "/app")
		r.RemoteAddr = "198.51.100.20:4000"
		_, err = svc.Authenticate(ctx, r)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	protected := func(svc *auth.Service) http.Handler {
		return svc.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(p.UserID))
		}))
	}

	t.Run("redirects navigations without a session", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		rec := httptest.NewRecorder()
		protected(svc).ServeHTTP(rec, jar{}.request(http.MethodGet, "/app"))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?error=session_invalid", rec.Header().Get("Location"))
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})

	t.Run("answers 401 for api calls without a session", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		rec := httptest.NewRecorder()
		protected(svc).ServeHTTP(rec, jar{}.request(http.MethodPost, "/api/thing"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, auth.CodeSessionInvalid, body["error"])
	})

	t.Run("passes the principal through", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)
		j := jar{}

		rec := httptest.NewRecorder()
		_, err := svc.Login(context.Background(), rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		j.absorb(rec)

		rec = httptest.NewRecorder()
		protected(svc).ServeHTTP(rec, j.request(http.MethodGet, "/app"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", rec.Body.String())
	})

	t.Run("clears a session cookie that fails its binds", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)
		j := jar{}

		rec := httptest.NewRecorder()
		_, err := svc.Login(context.Background(), rec, j.request(http.MethodPost, "/login"), jane(), false)
		require.NoError(t, err)
		j.absorb(rec)

		r := j.request(http.MethodGet, "/app")
		r.RemoteAddr = "198.51.100.20:4000"
		rec = httptest.NewRecorder()
		protected(svc).ServeHTTP(rec, r)
		assert.Equal(t, http.StatusSeeOther, rec.Code)

		cleared := false
		for _, c := range rec.Result().Cookies() {
			if strings.HasSuffix(c.Name, "session") && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared)
	})
}

func TestExchange(t *testing.T) {
	t.Parallel()

	t.Run("exchange ticket signs the user in on the target host", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		target, err := svc.ExchangeURL(jane(), "https://app.example.com/auth/exchange")
		require.NoError(t, err)

		j := jar{}
		rec := httptest.NewRecorder()
		svc.ExchangeHandler().ServeHTTP(rec, j.request(http.MethodGet, target))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/billing", rec.Header().Get("Location"))

		j.absorb(rec)
		p, err := svc.Authenticate(context.Background(), j.request(http.MethodGet, "/billing"))
		require.NoError(t, err)
		assert.Equal(t, "u1", p.UserID)
	})

	t.Run("refuses shared-domain cookies", func(t *testing.T) {
		t.Parallel()
		cfg := auth.DefaultConfig()
		cfg.Secret = testSecret
		cfg.Cookie.Mode = cookie.ModeSharedDomain
		cfg.Cookie.Domain = "example.com"
		store := memstore.New()
		svc, err := auth.New(cfg, auth.Stores{Sessions: store, Trust: store})
		require.NoError(t, err)

		_, err = svc.ExchangeURL(jane(), "https://app.example.com/auth/exchange")
		assert.ErrorIs(t, err, auth.ErrExchangeUnavailable)
	})
}

func TestPasskeyHandlers(t *testing.T) {
	t.Parallel()

	post := func(h http.Handler, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/auth/passkey/start", strings.NewReader(body))
		r.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	t.Run("start without credentials is a conflict", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		tok, err := svc.BeginStepUp(jane())
		require.NoError(t, err)
		rec := post(svc.PasskeyStartHandler(), `{"twoFactorTicket":"`+tok+`"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), auth.CodeUnavailable)
	})

	t.Run("start with a bad ticket is rejected", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		rec := post(svc.PasskeyStartHandler(), `{"twoFactorTicket":"nope"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), auth.CodeInvalidTicket)
	})

	t.Run("finish with a bad ticket fails step-up", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		rec := post(svc.PasskeyFinishHandler(), `{"ticket":"nope","assertion":{}}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), auth.CodeStepUpFailed)
	})
}
