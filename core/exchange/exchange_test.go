package exchange_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/exchange"
	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

var key = []byte("exchange-test-key-0123456789abcd")

type recorder struct {
	calls  int
	claims handoff.Exchange
	err    error
}

func (r *recorder) IssueExchanged(_ context.Context, w http.ResponseWriter, _ *http.Request, c handoff.Exchange) error {
	r.calls++
	r.claims = c
	if r.err != nil {
		return r.err
	}
	http.SetCookie(w, &http.Cookie{Name: "__Host-session", Value: "v", Path: "/", Secure: true, HttpOnly: true})
	return nil
}

func newExchange(iss exchange.Issuer, opts ...exchange.Option) *exchange.Exchange {
	opts = append([]exchange.Option{exchange.WithAllowedHosts("app.example.com")}, opts...)
	return exchange.New(handoff.NewCodecs(key).Exchange, iss, opts...)
}

func serve(x *exchange.Exchange, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	x.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestExchange(t *testing.T) {
	t.Parallel()

	t.Run("valid ticket issues a session and redirects to next", func(t *testing.T) {
		t.Parallel()
		iss := &recorder{}
		x := newExchange(iss)
		tok, err := x.Mint(handoff.Exchange{UserID: "u1", Email: "jane@example.com", FullName: "Jane"})
		require.NoError(t, err)

		w := serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok)+"&next=%2Fbilling")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/billing", w.Header().Get("Location"))
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
		assert.Equal(t, 1, iss.calls)
		assert.Equal(t, "u1", iss.claims.UserID)
		assert.Equal(t, "Jane", iss.claims.FullName)
	})

	t.Run("next embedded in the ticket is used as fallback", func(t *testing.T) {
		t.Parallel()
		x := newExchange(&recorder{})
		tok, err := x.Mint(handoff.Exchange{UserID: "u1", Email: "jane@example.com", Next: "https://app.example.com/home"})
		require.NoError(t, err)

		w := serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok))
		assert.Equal(t, "https://app.example.com/home", w.Header().Get("Location"))
	})

	t.Run("unsafe next falls back to the default", func(t *testing.T) {
		t.Parallel()
		x := newExchange(&recorder{})
		tok, err := x.Mint(handoff.Exchange{UserID: "u1", Email: "jane@example.com"})
		require.NoError(t, err)

		w := serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok)+"&next="+url.QueryEscape("//evil.test/x"))
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("tampered ticket redirects to login without details", func(t *testing.T) {
		t.Parallel()
		iss := &recorder{}
		x := newExchange(iss)
		tok, err := x.Mint(handoff.Exchange{UserID: "u1", Email: "jane@example.com"})
		require.NoError(t, err)

		w := serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok+"x"))
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?error=exchange_failed", w.Header().Get("Location"))
		assert.Empty(t, w.Header().Get("Set-Cookie"))
		assert.Zero(t, iss.calls)
	})

	t.Run("other ticket kinds are refused", func(t *testing.T) {
		t.Parallel()
		iss := &recorder{}
		x := newExchange(iss)
		tok, err := handoff.NewCodecs(key).TwoFactor.Encode(handoff.TwoFactor{UserID: "u1", Email: "jane@example.com"})
		require.NoError(t, err)

		w := serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok))
		assert.Equal(t, "/login?error=exchange_failed", w.Header().Get("Location"))
		assert.Zero(t, iss.calls)
	})

	t.Run("expired ticket is refused", func(t *testing.T) {
		t.Parallel()
		past := func() time.Time { return time.Now().Add(-time.Hour) }
		tok, err := ticket.NewCodec[handoff.Exchange](key, handoff.ExchangeTTL, ticket.WithClock(past)).
			Encode(handoff.Exchange{UserID: "u1", Email: "jane@example.com"})
		require.NoError(t, err)

		w := serve(newExchange(&recorder{}), "/auth/exchange?ticket="+url.QueryEscape(tok))
		assert.Equal(t, "/login?error=exchange_failed", w.Header().Get("Location"))
	})

	t.Run("issuer failure is reported as exchange failure", func(t *testing.T) {
		t.Parallel()
		x := newExchange(&recorder{err: errors.New("cookie too large")})
		tok, err := x.Mint(handoff.Exchange{UserID: "u1", Email: "jane@example.com"})
		require.NoError(t, err)

		w := serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok))
		assert.Equal(t, "/login?error=exchange_failed", w.Header().Get("Location"))
	})

	t.Run("guard makes tickets one-shot", func(t *testing.T) {
		t.Parallel()
		g := handoff.NewMemoryGuard()
		defer g.Close()
		iss := &recorder{}
		x := newExchange(iss, exchange.WithGuard(g))
		tok, err := x.Mint(handoff.Exchange{UserID: "u1", Email: "jane@example.com"})
		require.NoError(t, err)

		assert.Equal(t, "/", serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok)).Header().Get("Location"))
		assert.Equal(t, "/login?error=exchange_failed", serve(x, "/auth/exchange?ticket="+url.QueryEscape(tok)).Header().Get("Location"))
		assert.Equal(t, 1, iss.calls)
	})

	t.Run("post is not allowed", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		newExchange(&recorder{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/exchange", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("mint requires an identity", func(t *testing.T) {
		t.Parallel()
		_, err := newExchange(nil).Mint(handoff.Exchange{UserID: "u1"})
		assert.ErrorIs(t, err, exchange.ErrInvalidClaims)
	})
}

func TestSafeNext(t *testing.T) {
	t.Parallel()

	x := newExchange(nil)
	tests := []struct {
		next string
		ok   bool
	}{
		{"/billing", true},
		{"/a?b=c", true},
		{"//evil.test", false},
		{"/\\evil.test", false},
		{"https://app.example.com/x", true},
		{"https://APP.example.com/x", true},
		{"https://evil.test/x", false},
		{"https://user@app.example.com/x", false},
		{"javascript:alert(1)", false},
		{"billing", false},
		{"", false},
	}
	for _, tt := range tests {
		_, ok := x.SafeNext(tt.next)
		assert.Equal(t, tt.ok, ok, tt.next)
	}
}

func TestRedirectURL(t *testing.T) {
	t.Parallel()

	got, err := exchange.RedirectURL("https://app.example.com/auth/exchange", "tok.sig", "/billing")
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "tok.sig", u.Query().Get("ticket"))
	assert.Equal(t, "/billing", u.Query().Get("next"))

	_, err = exchange.RedirectURL("/relative", "t", "")
	assert.ErrorIs(t, err, exchange.ErrInvalidTarget)
}
