package cookie

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// MaxCookieSize is the maximum size for a cookie (4KB).
const MaxCookieSize = 4096

// Manager resolves cookie names and attributes from a naming policy.
type Manager struct {
	mode     Mode
	domain   string
	secure   bool
	defaults Options
	maxSize  int
}

// New validates cfg and resolves the naming policy.
func New(cfg Config, opts ...Option) (*Manager, error) {
	sameSite, err := ParseSameSite(cfg.SameSite)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		mode:    cfg.Mode,
		secure:  cfg.Secure,
		maxSize: cfg.MaxSize,
		defaults: applyOptions(Options{
			Path:     "/",
			HttpOnly: true,
			SameSite: sameSite,
		}, opts),
	}
	if m.maxSize <= 0 {
		m.maxSize = MaxCookieSize
	}

	switch cfg.Mode {
	case ModeHostOnly:
		m.domain = ""
	case ModeSharedDomain:
		m.domain = strings.TrimPrefix(strings.TrimSpace(cfg.Domain), ".")
		if m.domain == "" {
			return nil, ErrDomainRequired
		}
	default:
		return nil, ErrInvalidMode
	}

	return m, nil
}

// Mode returns the resolved naming policy.
func (m *Manager) Mode() Mode { return m.mode }

// HostOnly reports whether cookies are restricted to the setting host.
func (m *Manager) HostOnly() bool { return m.mode == ModeHostOnly }

// Secure reports whether cookies carry the Secure attribute.
func (m *Manager) Secure() bool { return m.secure }

// Define resolves the final name and attributes for the cookie called base.
func (m *Manager) Define(base string, opts ...Option) Definition {
	o := applyOptions(m.defaults, opts)

	name := base
	if m.mode == ModeHostOnly {
		o.Path = "/"
		if m.secure {
			name = HostPrefix + base
		}
	}

	return Definition{
		name:    name,
		domain:  m.domain,
		secure:  m.secure,
		opts:    o,
		maxSize: m.maxSize,
	}
}

// Definition is a fully resolved cookie: name, domain and attributes are fixed.
type Definition struct {
	name    string
	domain  string
	secure  bool
	opts    Options
	maxSize int
}

// Name returns the resolved cookie name.
func (d Definition) Name() string { return d.name }

// Domain returns the Domain attribute, empty for host-only cookies.
func (d Definition) Domain() string { return d.domain }

// Cookie builds the http.Cookie for value with the given lifetime.
func (d Definition) Cookie(value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     d.name,
		Value:    value,
		Path:     d.opts.Path,
		Domain:   d.domain,
		MaxAge:   maxAge,
		Secure:   d.secure,
		HttpOnly: d.opts.HttpOnly,
		SameSite: d.opts.SameSite,
	}
}

// Build is like Cookie but enforces the size limit.
func (d Definition) Build(value string, ttl time.Duration) (*http.Cookie, error) {
	c := d.Cookie(value, ttl)
	if size := len(c.String()); size > d.maxSize {
		return nil, ErrCookieTooLarge{Name: d.name, Size: size, Max: d.maxSize}
	}
	return c, nil
}

// Set writes the cookie with Max-Age derived from ttl.
// Nothing is written when the cookie would exceed the size limit.
func (d Definition) Set(w http.ResponseWriter, value string, ttl time.Duration) error {
	c, err := d.Build(value, ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

// Get returns the cookie value from r.
func (d Definition) Get(r *http.Request) (string, error) {
	c, err := r.Cookie(d.name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	if c.Value == "" {
		return "", ErrCookieNotFound
	}
	return c.Value, nil
}

// Delete expires the cookie.
func (d Definition) Delete(w http.ResponseWriter) {
	c := d.Cookie("", 0)
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}
