package sessiontransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/gatekeeper/core/cookie"
	"github.com/dmitrymomot/gatekeeper/pkg/secrets"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

const (
	sidBytes      = 16
	deviceIDBytes = 32
)

// Transport issues and verifies session cookies.
type Transport struct {
	cfg     Config
	key     []byte
	bindKey []byte
	session cookie.Definition
	device  cookie.Definition
	now     func() time.Time
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
	}
}

// New resolves cookie definitions once from cookies and cfg.
func New(cookies *cookie.Manager, key, bindKey []byte, cfg Config, opts ...Option) (*Transport, error) {
	if len(key) == 0 || len(bindKey) == 0 {
		return nil, ErrNoKey
	}
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.DeviceCookieName == "" {
		cfg.DeviceCookieName = def.DeviceCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.DeviceTTL <= 0 {
		cfg.DeviceTTL = def.DeviceTTL
	}

	t := &Transport{
		cfg:     cfg,
		key:     append([]byte(nil), key...),
		bindKey: append([]byte(nil), bindKey...),
		session: cookies.Define(cfg.CookieName),
		device:  cookies.Define(cfg.DeviceCookieName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Config returns the effective configuration.
func (t *Transport) Config() Config { return t.cfg }

// CookieName returns the resolved session cookie name.
func (t *Transport) CookieName() string { return t.session.Name() }

// DeviceID returns the device cookie value, if present.
func (t *Transport) DeviceID(r *http.Request) (string, bool) {
	v, err := t.device.Get(r)
	if err != nil {
		return "", false
	}
	return v, true
}

// EnsureDevice returns the current device id, issuing a new device cookie when the
// request carries none.
func (t *Transport) EnsureDevice(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := t.DeviceID(r); ok {
		return id, nil
	}
	id, err := secrets.RandomHex(deviceIDBytes)
	if err != nil {
		return "", err
	}
	if err := t.device.Set(w, id, t.cfg.DeviceTTL); err != nil {
		return "", err
	}
	return id, nil
}

// Issue mints a session for c and writes the session cookie, plus the device cookie
// when the request has none. Nothing is written if any step fails.
func (t *Transport) Issue(w http.ResponseWriter, r *http.Request, c Claims) (Payload, error) {
	if c.UserID == "" || c.Email == "" {
		return Payload{}, ErrInvalidClaims
	}

	deviceID, hasDevice := t.DeviceID(r)
	var deviceCookie *http.Cookie
	if !hasDevice {
		id, err := secrets.RandomHex(deviceIDBytes)
		if err != nil {
			return Payload{}, err
		}
		deviceID = id
		if deviceCookie, err = t.device.Build(id, t.cfg.DeviceTTL); err != nil {
			return Payload{}, err
		}
	}

	sid, err := secrets.RandomHex(sidBytes)
	if err != nil {
		return Payload{}, err
	}

	now := t.now()
	did, ua, ip := computeBinds(t.cfg, t.bindKey, deviceID, r)
	p := Payload{
		UserID:     c.UserID,
		Email:      c.Email,
		IssuedAt:   now.UnixMilli(),
		ExpiresAt:  now.Add(t.cfg.TTL).UnixMilli(),
		Version:    PayloadVersion,
		SID:        sid,
		DeviceBind: did,
		UABind:     ua,
		IPBind:     ip,
	}

	body, err := json.Marshal(p)
	if err != nil {
		return Payload{}, fmt.Errorf("sessiontransport: failed to marshal payload: %w", err)
	}
	value, err := ticket.Seal(body, t.key)
	if err != nil {
		return Payload{}, err
	}
	sessionCookie, err := t.session.Build(value, t.cfg.TTL)
	if err != nil {
		return Payload{}, err
	}

	if deviceCookie != nil {
		http.SetCookie(w, deviceCookie)
	}
	http.SetCookie(w, sessionCookie)

	return p, nil
}

// Read verifies the session cookie of r: signature, expiry, then binds.
func (t *Transport) Read(r *http.Request) (Payload, error) {
	value, err := t.session.Get(r)
	if err != nil {
		if errors.Is(err, cookie.ErrCookieNotFound) {
			return Payload{}, ErrNoSession
		}
		return Payload{}, err
	}
	return t.Verify(r, value)
}

// Verify checks a raw session cookie value against r.
func (t *Transport) Verify(r *http.Request, value string) (Payload, error) {
	body, err := ticket.Open(value, t.key)
	if err != nil {
		return Payload{}, err
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, ticket.ErrMalformed
	}
	if t.now().UnixMilli() >= p.ExpiresAt {
		return Payload{}, ticket.ErrExpired
	}

	if t.isLegacy(p) {
		if !t.cfg.AllowLegacy {
			return Payload{}, ErrLegacyRejected
		}
		return p, nil
	}

	deviceID, _ := t.DeviceID(r)
	did, ua, ip := computeBinds(t.cfg, t.bindKey, deviceID, r)

	if t.cfg.BindDevice && (did == "" || !equal(did, p.DeviceBind)) {
		return Payload{}, ErrBindMismatch
	}
	if t.cfg.BindUA && !equal(ua, p.UABind) {
		return Payload{}, ErrBindMismatch
	}
	if t.cfg.BindIP && !equal(ip, p.IPBind) {
		return Payload{}, ErrBindMismatch
	}

	return p, nil
}

// Clear deletes the session cookie. The device cookie is kept.
func (t *Transport) Clear(w http.ResponseWriter) {
	t.session.Delete(w)
}

func (t *Transport) isLegacy(p Payload) bool {
	if p.Version < PayloadVersion {
		return true
	}
	return t.cfg.anyBind() && !p.HasBinds()
}
