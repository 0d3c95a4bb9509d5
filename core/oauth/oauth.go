package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/gatekeeper/core/cookie"
	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/pkg/secrets"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

// Config holds OAuth flow settings loadable from the environment.
type Config struct {
	StateCookieName  string        `env:"OAUTH_STATE_COOKIE_NAME" envDefault:"ost"`
	ExchangeTimeout  time.Duration `env:"OAUTH_EXCHANGE_TIMEOUT" envDefault:"10s"`
	ExchangeAttempts int           `env:"OAUTH_EXCHANGE_ATTEMPTS" envDefault:"3"`
	RetryDelay       time.Duration `env:"OAUTH_RETRY_DELAY" envDefault:"250ms"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		StateCookieName:  "ost",
		ExchangeTimeout:  10 * time.Second,
		ExchangeAttempts: 3,
		RetryDelay:       250 * time.Millisecond,
	}
}

// Result is a completed callback.
type Result struct {
	Provider string
	State    handoff.OAuthState
	Config   *oauth2.Config
	Token    *oauth2.Token
}

// Option configures a Flow.
type Option func(*Flow)

// WithProvider registers an OAuth client under name.
func WithProvider(name string, cfg *oauth2.Config) Option {
	return func(f *Flow) { f.providers[name] = cfg }
}

// WithVerifierKey sets the key PKCE verifiers are derived with. Without it a
// random per-process key is used, so callbacks do not survive a restart.
func WithVerifierKey(key []byte) Option {
	return func(f *Flow) { f.verifierKey = key }
}

// WithConfig applies cfg.
func WithConfig(cfg Config) Option {
	return func(f *Flow) { f.cfg = cfg }
}

// Flow runs OAuth authorization code logins.
type Flow struct {
	cfg         Config
	codec       ticket.Codec[handoff.OAuthState]
	state       cookie.Definition
	providers   map[string]*oauth2.Config
	verifierKey []byte
}

// New creates a Flow.
func New(codec ticket.Codec[handoff.OAuthState], cookies *cookie.Manager, opts ...Option) *Flow {
	f := &Flow{
		cfg:       DefaultConfig(),
		codec:     codec,
		providers: make(map[string]*oauth2.Config),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg.StateCookieName == "" {
		f.cfg.StateCookieName = "ost"
	}
	if len(f.verifierKey) == 0 {
		f.verifierKey, _ = secrets.RandomBytes(32)
	}
	f.cfg.ExchangeAttempts = max(f.cfg.ExchangeAttempts, 1)
	if f.cfg.ExchangeTimeout <= 0 {
		f.cfg.ExchangeTimeout = 10 * time.Second
	}
	f.state = cookies.Define(f.cfg.StateCookieName, cookie.WithSameSite(http.SameSiteLaxMode))
	return f
}

// Provider returns the client registered under name.
func (f *Flow) Provider(name string) (*oauth2.Config, bool) {
	cfg, ok := f.providers[name]
	return cfg, ok
}

// Begin mints the state ticket, stores it in the state cookie and returns the
// provider authorization URL.
func (f *Flow) Begin(w http.ResponseWriter, r *http.Request, provider, next, intent string) (string, error) {
	cfg, ok := f.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	seed, err := secrets.RandomToken(16)
	if err != nil {
		return "", err
	}
	state, err := f.codec.Encode(handoff.OAuthState{
		Next:     next,
		Intent:   intent,
		Provider: provider,
		Seed:     seed,
	})
	if err != nil {
		return "", err
	}
	if err := f.state.Set(w, state, f.codec.TTL()); err != nil {
		return "", err
	}

	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(f.verifier(seed))), nil
}

// Callback validates the state and exchanges the authorization code.
// The state cookie is cleared whatever the outcome.
func (f *Flow) Callback(w http.ResponseWriter, r *http.Request) (Result, error) {
	defer f.state.Delete(w)

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrProviderDenied, e)
	}

	raw, err := f.stateValue(r)
	if err != nil {
		return Result{}, err
	}
	st, _, err := f.codec.Decode(raw)
	if err != nil {
		return Result{}, errors.Join(ErrInvalidState, err)
	}

	cfg, ok := f.providers[st.Provider]
	if !ok {
		return Result{}, ErrUnknownProvider
	}
	code := q.Get("code")
	if code == "" {
		return Result{}, ErrMissingCode
	}

	var verifier string
	if st.Seed != "" {
		verifier = f.verifier(st.Seed)
	}
	tok, err := f.exchange(r.Context(), cfg, code, verifier)
	if err != nil {
		return Result{}, err
	}
	return Result{Provider: st.Provider, State: st, Config: cfg, Token: tok}, nil
}

// verifier derives the PKCE code verifier for seed: 43 base64url characters,
// the minimum length RFC 7636 allows.
func (f *Flow) verifier(seed string) string {
	m := hmac.New(sha256.New, f.verifierKey)
	m.Write([]byte(seed))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

func (f *Flow) stateValue(r *http.Request) (string, error) {
	q := r.URL.Query()
	fromQuery := q.Get("state")
	if fromQuery == "" {
		fromQuery = q.Get("st")
	}
	fromCookie, _ := f.state.Get(r)

	switch {
	case fromQuery != "" && fromCookie != "" && fromQuery != fromCookie:
		return "", ErrStateMismatch
	case fromQuery != "":
		return fromQuery, nil
	case fromCookie != "":
		return fromCookie, nil
	default:
		return "", ErrMissingState
	}
}

// exchange swaps code for a token. Network failures and 5xx answers are retried
// with exponential backoff; a provider rejection is returned at once.
func (f *Flow) exchange(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	var lastErr error
	delay := f.cfg.RetryDelay
	for attempt := 1; attempt <= f.cfg.ExchangeAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrExchangeFailed, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		tok, err := f.exchangeOnce(ctx, cfg, code, opts)
		if err == nil {
			return tok, nil
		}
		lastErr = err

		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			break
		}
	}
	return nil, errors.Join(ErrExchangeFailed, lastErr)
}

func (f *Flow) exchangeOnce(ctx context.Context, cfg *oauth2.Config, code string, opts []oauth2.AuthCodeOption) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ExchangeTimeout)
	defer cancel()
	return cfg.Exchange(ctx, code, opts...)
}
