package exchange

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

// ErrorCode is appended to the login path when an exchange fails.
const ErrorCode = "exchange_failed"

var (
	// ErrInvalidClaims is returned by Mint when the identity is incomplete.
	ErrInvalidClaims = errors.New("exchange: user id and email are required")
	// ErrInvalidTarget is returned by RedirectURL for a malformed endpoint URL.
	ErrInvalidTarget = errors.New("exchange: invalid target url")
)

// Issuer performs session issuance on the target host.
type Issuer interface {
	IssueExchanged(ctx context.Context, w http.ResponseWriter, r *http.Request, claims handoff.Exchange) error
}

// IssuerFunc adapts a function to Issuer.
type IssuerFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request, claims handoff.Exchange) error

// IssueExchanged implements Issuer.
func (f IssuerFunc) IssueExchanged(ctx context.Context, w http.ResponseWriter, r *http.Request, claims handoff.Exchange) error {
	return f(ctx, w, r, claims)
}

// Config holds exchange settings loadable from the environment.
type Config struct {
	LoginPath    string   `env:"EXCHANGE_LOGIN_PATH" envDefault:"/login"`
	DefaultNext  string   `env:"EXCHANGE_DEFAULT_NEXT" envDefault:"/"`
	AllowedHosts []string `env:"EXCHANGE_ALLOWED_HOSTS" envSeparator:","`
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithConfig applies cfg.
func WithConfig(cfg Config) Option {
	return func(x *Exchange) {
		if cfg.LoginPath != "" {
			x.loginPath = cfg.LoginPath
		}
		if cfg.DefaultNext != "" {
			x.defaultNext = cfg.DefaultNext
		}
		WithAllowedHosts(cfg.AllowedHosts...)(x)
	}
}

// WithAllowedHosts permits absolute next URLs on hosts.
func WithAllowedHosts(hosts ...string) Option {
	return func(x *Exchange) {
		for _, h := range hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				x.allowed[h] = struct{}{}
			}
		}
	}
}

// WithGuard makes the endpoint admit each ticket once.
func WithGuard(g handoff.Guard) Option {
	return func(x *Exchange) { x.guard = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Exchange) {
		if l != nil {
			x.log = l
		}
	}
}

// Exchange mints exchange tickets and serves the redirect endpoint.
type Exchange struct {
	codec       ticket.Codec[handoff.Exchange]
	issuer      Issuer
	guard       handoff.Guard
	allowed     map[string]struct{}
	loginPath   string
	defaultNext string
	log         *slog.Logger
}

// New creates an Exchange. issuer may be nil on hosts that only mint.
func New(codec ticket.Codec[handoff.Exchange], issuer Issuer, opts ...Option) *Exchange {
	x := &Exchange{
		codec:       codec,
		issuer:      issuer,
		allowed:     make(map[string]struct{}),
		loginPath:   "/login",
		defaultNext: "/",
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.log = x.log.With(logger.Component("exchange"))
	return x
}

// Mint issues an exchange ticket for claims.
func (x *Exchange) Mint(claims handoff.Exchange) (string, error) {
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.Email) == "" {
		return "", ErrInvalidClaims
	}
	if next, ok := x.SafeNext(claims.Next); ok {
		claims.Next = next
	} else {
		claims.Next = ""
	}
	return x.codec.Encode(claims)
}

// RedirectURL returns endpoint with ticket and next set as query parameters.
func RedirectURL(endpoint, tok, next string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", ErrInvalidTarget
	}
	q := u.Query()
	q.Set("ticket", tok)
	if next != "" {
		q.Set("next", next)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SafeNext reports whether next is an acceptable redirect target and returns it trimmed.
func (x *Exchange) SafeNext(next string) (string, bool) {
	next = strings.TrimSpace(next)
	if next == "" || strings.ContainsAny(next, "\\\r\n\t") {
		return "", false
	}
	if strings.HasPrefix(next, "/") {
		if strings.HasPrefix(next, "//") {
			return "", false
		}
		return next, true
	}

	u, err := url.Parse(next)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || u.User != nil {
		return "", false
	}
	if _, ok := x.allowed[strings.ToLower(u.Hostname())]; !ok {
		return "", false
	}
	return next, true
}

// ServeHTTP handles GET ?ticket=&next=.
func (x *Exchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, hdr, err := x.codec.Decode(r.URL.Query().Get("ticket"))
	if err != nil {
		x.fail(w, r, "decode", err)
		return
	}
	if err := handoff.Check(ctx, x.guard, hdr.Nonce, hdr.Expires()); err != nil {
		x.fail(w, r, "replay", err)
		return
	}
	if x.issuer == nil {
		x.fail(w, r, "issue", errors.New("exchange: no issuer configured"))
		return
	}
	if err := x.issuer.IssueExchanged(ctx, w, r, claims); err != nil {
		x.fail(w, r, "issue", err)
		return
	}

	next := x.defaultNext
	if v, ok := x.SafeNext(r.URL.Query().Get("next")); ok {
		next = v
	} else if v, ok := x.SafeNext(claims.Next); ok {
		next = v
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (x *Exchange) fail(w http.ResponseWriter, r *http.Request, stage string, err error) {
	x.log.WarnContext(r.Context(), "exchange rejected", logger.Event(stage), logger.Error(err))

	u := url.URL{Path: x.loginPath}
	q := url.Values{}
	q.Set("error", ErrorCode)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}
