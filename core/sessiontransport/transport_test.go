package sessiontransport_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/cookie"
	"github.com/dmitrymomot/gatekeeper/core/sessiontransport"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

var (
	sessionKey = []byte("session-key-0123456789abcdef0123")
	bindKey    = []byte("bind-key-0123456789abcdef01234567")
)

const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/120.0.0.0 Safari/537.36"

func newTransport(t *testing.T, cfg sessiontransport.Config, opts ...sessiontransport.Option) *sessiontransport.Transport {
	t.Helper()
	cookies, err := cookie.New(cookie.DefaultConfig())
	require.NoError(t, err)
	tr, err := sessiontransport.New(cookies, sessionKey, bindKey, cfg, opts...)
	require.NoError(t, err)
	return tr
}

func loginRequest(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.RemoteAddr = ip + ":5555"
	r.Header.Set("User-Agent", chromeUA)
	return r
}

// followUp builds a request carrying the cookies set on w.
func followUp(w *httptest.ResponseRecorder, ip string, keep func(name string) bool) *http.Request {
	r := loginRequest(ip)
	for _, c := range w.Result().Cookies() {
		if keep == nil || keep(c.Name) {
			r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return r
}

func all(string) bool { return true }

func TestIssue(t *testing.T) {
	t.Parallel()

	t.Run("sets session and device cookies with secure attributes", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := httptest.NewRecorder()

		p, err := tr.Issue(w, loginRequest("192.168.1.55"), sessiontransport.Claims{UserID: "u1", Email: "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, sessiontransport.PayloadVersion, p.Version)
		assert.NotEmpty(t, p.SID)
		assert.NotEmpty(t, p.DeviceBind)
		assert.Empty(t, p.UABind, "ua bind is off by default")
		assert.NotEmpty(t, p.IPBind)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 2)
		byName := map[string]*http.Cookie{}
		for _, c := range cookies {
			byName[c.Name] = c
		}

		sess := byName["__Host-session"]
		require.NotNil(t, sess)
		assert.True(t, sess.HttpOnly)
		assert.True(t, sess.Secure)
		assert.Equal(t, "/", sess.Path)
		assert.Empty(t, sess.Domain)
		assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), sess.MaxAge)

		dev := byName["__Host-did"]
		require.NotNil(t, dev)
		assert.Regexp(t, "^[a-f0-9]{64}$", dev.Value)
		assert.Equal(t, int((2 * 365 * 24 * time.Hour).Seconds()), dev.MaxAge)
	})

	t.Run("reuses an existing device cookie", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		r := loginRequest("10.1.1.1")
		r.AddCookie(&http.Cookie{Name: "__Host-did", Value: "existing-device"})

		w := httptest.NewRecorder()
		_, err := tr.Issue(w, r, sessiontransport.Claims{UserID: "u1", Email: "a@example.com"})
		require.NoError(t, err)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "__Host-session", cookies[0].Name)
	})

	t.Run("rejects missing claims without writing cookies", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := httptest.NewRecorder()
		_, err := tr.Issue(w, loginRequest("10.1.1.1"), sessiontransport.Claims{UserID: "u1"})
		assert.ErrorIs(t, err, sessiontransport.ErrInvalidClaims)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("writes nothing when the session cookie is too large", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := httptest.NewRecorder()
		_, err := tr.Issue(w, loginRequest("10.1.1.1"), sessiontransport.Claims{
			UserID: "u1",
			Email:  strings.Repeat("a", 4096) + "@example.com",
		})
		var tooLarge cookie.ErrCookieTooLarge
		assert.ErrorAs(t, err, &tooLarge)
		assert.Empty(t, w.Result().Cookies(), "device cookie must not be written either")
	})
}

func TestRead(t *testing.T) {
	t.Parallel()

	issue := func(t *testing.T, tr *sessiontransport.Transport, ip string) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		_, err := tr.Issue(w, loginRequest(ip), sessiontransport.Claims{UserID: "u1", Email: "a@example.com"})
		require.NoError(t, err)
		return w
	}

	t.Run("accepts the session with the matching device cookie", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := issue(t, tr, "192.168.1.55")

		p, err := tr.Read(followUp(w, "192.168.1.55", all))
		require.NoError(t, err)
		assert.Equal(t, "u1", p.UserID)
	})

	t.Run("rejects a replay without the device cookie", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := issue(t, tr, "192.168.1.55")

		r := followUp(w, "192.168.1.55", func(name string) bool { return name == "__Host-session" })
		_, err := tr.Read(r)
		assert.ErrorIs(t, err, sessiontransport.ErrBindMismatch)
	})

	t.Run("rejects a replay with another device cookie", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := issue(t, tr, "192.168.1.55")

		r := followUp(w, "192.168.1.55", func(name string) bool { return name == "__Host-session" })
		r.AddCookie(&http.Cookie{Name: "__Host-did", Value: "someone-else"})
		_, err := tr.Read(r)
		assert.ErrorIs(t, err, sessiontransport.ErrBindMismatch)
	})

	t.Run("tolerates address changes inside the same /24", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := issue(t, tr, "192.168.1.55")

		_, err := tr.Read(followUp(w, "192.168.1.200", all))
		assert.NoError(t, err)
	})

	t.Run("rejects another network when ip bind is on", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := issue(t, tr, "192.168.1.55")

		_, err := tr.Read(followUp(w, "10.0.0.1", all))
		assert.ErrorIs(t, err, sessiontransport.ErrBindMismatch)
	})

	t.Run("ignores network changes when ip bind is off", func(t *testing.T) {
		t.Parallel()
		cfg := sessiontransport.DefaultConfig()
		cfg.BindIP = false
		tr := newTransport(t, cfg)
		w := issue(t, tr, "192.168.1.55")

		_, err := tr.Read(followUp(w, "10.0.0.1", all))
		assert.NoError(t, err)
	})

	t.Run("rejects a changed user agent when ua bind is on", func(t *testing.T) {
		t.Parallel()
		cfg := sessiontransport.DefaultConfig()
		cfg.BindUA = true
		tr := newTransport(t, cfg)
		w := issue(t, tr, "192.168.1.55")

		r := followUp(w, "192.168.1.55", all)
		r.Header.Set("User-Agent", "curl/8.0")
		_, err := tr.Read(r)
		assert.ErrorIs(t, err, sessiontransport.ErrBindMismatch)
	})

	t.Run("rejects an expired session", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		cfg := sessiontransport.DefaultConfig()
		cfg.TTL = time.Hour
		tr := newTransport(t, cfg, sessiontransport.WithClock(func() time.Time { return now }))
		w := issue(t, tr, "192.168.1.55")

		now = now.Add(time.Hour)
		_, err := tr.Read(followUp(w, "192.168.1.55", all))
		assert.ErrorIs(t, err, ticket.ErrExpired)
	})

	t.Run("rejects a tampered cookie", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		w := issue(t, tr, "192.168.1.55")

		r := followUp(w, "192.168.1.55", func(name string) bool { return name == "__Host-did" })
		forged := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":"admin"}`)) + ".c2ln"
		r.AddCookie(&http.Cookie{Name: "__Host-session", Value: forged})
		_, err := tr.Read(r)
		assert.ErrorIs(t, err, ticket.ErrSignatureInvalid)
	})

	t.Run("reports a missing cookie", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		_, err := tr.Read(loginRequest("192.168.1.55"))
		assert.ErrorIs(t, err, sessiontransport.ErrNoSession)
	})
}

func TestLegacy(t *testing.T) {
	t.Parallel()

	legacyValue := func(t *testing.T) string {
		t.Helper()
		body, err := json.Marshal(sessiontransport.Payload{
			UserID:    "u1",
			Email:     "a@example.com",
			IssuedAt:  time.Now().UnixMilli(),
			ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
			Version:   1,
		})
		require.NoError(t, err)
		v, err := ticket.Seal(body, sessionKey)
		require.NoError(t, err)
		return v
	}

	t.Run("legacy payloads are rejected by default", func(t *testing.T) {
		t.Parallel()
		tr := newTransport(t, sessiontransport.DefaultConfig())
		_, err := tr.Verify(loginRequest("10.0.0.1"), legacyValue(t))
		assert.ErrorIs(t, err, sessiontransport.ErrLegacyRejected)
	})

	t.Run("legacy payloads are accepted when allowed", func(t *testing.T) {
		t.Parallel()
		cfg := sessiontransport.DefaultConfig()
		cfg.AllowLegacy = true
		tr := newTransport(t, cfg)
		p, err := tr.Verify(loginRequest("10.0.0.1"), legacyValue(t))
		require.NoError(t, err)
		assert.False(t, p.Identified())
	})

	t.Run("payloads without binds are fine when every bind is off", func(t *testing.T) {
		t.Parallel()
		cfg := sessiontransport.DefaultConfig()
		cfg.BindDevice, cfg.BindIP, cfg.BindUA = false, false, false
		tr := newTransport(t, cfg)

		w := httptest.NewRecorder()
		_, err := tr.Issue(w, loginRequest("10.0.0.1"), sessiontransport.Claims{UserID: "u1", Email: "a@example.com"})
		require.NoError(t, err)

		_, err = tr.Read(followUp(w, "172.16.0.1", all))
		assert.NoError(t, err)
	})
}

func TestClear(t *testing.T) {
	t.Parallel()
	tr := newTransport(t, sessiontransport.DefaultConfig())
	w := httptest.NewRecorder()
	tr.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "__Host-session", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
