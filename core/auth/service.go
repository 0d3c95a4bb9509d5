package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/gatekeeper/core/cookie"
	"github.com/dmitrymomot/gatekeeper/core/device"
	"github.com/dmitrymomot/gatekeeper/core/exchange"
	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/core/notify"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
	"github.com/dmitrymomot/gatekeeper/core/passkey"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/core/sessiontransport"
	"github.com/dmitrymomot/gatekeeper/core/trust"
	"github.com/dmitrymomot/gatekeeper/pkg/secrets"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

// Stores are the persistence collaborators. Passkeys may be nil.
type Stores struct {
	Sessions session.Store
	Trust    trust.Store
	Passkeys passkey.Store
}

// Login describes a user that passed a credential check.
type Login struct {
	UserID   string
	Email    string
	FullName string
	Method   string
	Flow     string
	Next     string
	// Remember asks for a trusted-device cookie after step-up.
	Remember bool
}

// Outcome is the result of Login: either a session or a pending step-up.
type Outcome struct {
	Session         *sessiontransport.Payload
	TwoFactorTicket string
	// Bypassed is set when a trusted-device cookie skipped step-up.
	Bypassed bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithGuard enables single-use enforcement for exchange and passkey tickets.
func WithGuard(g handoff.Guard) Option {
	return func(s *Service) { s.guard = g }
}

// WithAttempts sets the per-ticket counter that caps email code guesses.
// Without it a guard that also counts attempts is used, else an in-memory one.
func WithAttempts(a handoff.Attempts) Option {
	return func(s *Service) { s.attempts = a }
}

// WithNotifier enables the emailed one-time code step-up.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOAuthProvider registers an OAuth client for the OAuth flow.
func WithOAuthProvider(name string, cfg *oauth2.Config) Option {
	return func(s *Service) { s.oauthProviders = append(s.oauthProviders, namedProvider{name, cfg}) }
}

type namedProvider struct {
	name string
	cfg  *oauth2.Config
}

// Service is the login and session orchestrator. It is safe for concurrent use.
type Service struct {
	cfg            Config
	log            *slog.Logger
	now            func() time.Time
	guard          handoff.Guard
	attempts       handoff.Attempts
	notifier       notify.Notifier
	oauthProviders []namedProvider

	cookies   *cookie.Manager
	transport *sessiontransport.Transport
	registry  *session.Registry
	trust     *trust.Service
	trustKey  cookie.Definition
	codecs    handoff.Codecs
	passkeys  *passkey.Verifier
	codeKey   []byte
	exchange  *exchange.Exchange
	oauth     *oauth.Flow
	resolver  device.Resolver
}

// New builds every component from cfg.
func New(cfg Config, stores Stores, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("auth"))
	if s.attempts == nil {
		if a, ok := s.guard.(handoff.Attempts); ok {
			s.attempts = a
		} else {
			s.attempts = handoff.NewMemoryAttempts()
		}
	}
	if s.cfg.LoginPath == "" {
		s.cfg.LoginPath = "/login"
	}
	if s.cfg.StepUpPath == "" {
		s.cfg.StepUpPath = "/login/2fa"
	}
	if s.cfg.ExchangePath == "" {
		s.cfg.ExchangePath = "/auth/exchange"
	}

	keys, err := secrets.NewKeyring(cfg.Secret)
	if err != nil {
		return nil, err
	}

	if s.cookies, err = cookie.New(cfg.Cookie); err != nil {
		return nil, fmt.Errorf("cookie policy: %w", err)
	}
	s.transport, err = sessiontransport.New(s.cookies, keys.Key(secrets.PurposeSession), keys.Key(secrets.PurposeBind),
		cfg.Session, sessiontransport.WithClock(s.now))
	if err != nil {
		return nil, err
	}

	s.registry = session.NewRegistry(stores.Sessions,
		session.WithLogger(s.log),
		session.WithClock(s.now),
		session.WithTouchWindow(cfg.Registry.TouchWindow),
	)
	s.trust = trust.New(stores.Trust, trust.WithDays(cfg.Trust.Days), trust.WithClock(s.now))
	trustName := cfg.Trust.CookieName
	if trustName == "" {
		trustName = "tdt"
	}
	s.trustKey = s.cookies.Define(trustName)

	s.codecs = handoff.NewCodecs(keys.Key(secrets.PurposeTicket), ticket.WithClock(s.now))
	s.codeKey = keys.Key(secrets.PurposeCode)

	if stores.Passkeys != nil {
		s.passkeys = passkey.New(stores.Passkeys, s.codecs.PasskeyChallenge,
			passkey.WithApexes(cfg.PasskeyApexes...),
			passkey.WithGuard(s.guard),
			passkey.WithClock(s.now),
		)
	}

	s.exchange = exchange.New(s.codecs.Exchange, exchange.IssuerFunc(s.issueExchanged),
		exchange.WithConfig(cfg.Exchange),
		exchange.WithGuard(s.guard),
		exchange.WithLogger(s.log),
	)

	oauthOpts := []oauth.Option{oauth.WithConfig(cfg.OAuth), oauth.WithVerifierKey(keys.Key(secrets.PurposePKCE))}
	for _, np := range s.oauthProviders {
		oauthOpts = append(oauthOpts, oauth.WithProvider(np.name, np.cfg))
	}
	s.oauth = oauth.New(s.codecs.OAuthState, s.cookies, oauthOpts...)

	s.resolver = device.NewResolver(cfg.DeviceSeed)
	return s, nil
}

// Registry exposes the session registry.
func (s *Service) Registry() *session.Registry { return s.registry }

// Codecs exposes the ticket codecs.
func (s *Service) Codecs() handoff.Codecs { return s.codecs }

// OAuth exposes the OAuth flow.
func (s *Service) OAuth() *oauth.Flow { return s.oauth }

// Login completes l, or returns a two-factor ticket when stepUp is required and
// no trusted-device cookie for l.Email is presented.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, l Login, stepUp bool) (Outcome, error) {
	if stepUp {
		if !s.ShouldBypassStepUp(ctx, r, l.Email) {
			tok, err := s.BeginStepUp(l)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{TwoFactorTicket: tok}, nil
		}
	}

	p, err := s.CompleteLogin(ctx, w, r, l)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Session: &p, Bypassed: stepUp}, nil
}

// CompleteLogin issues the session cookie for l, then records the device and
// session. Only cookie issuance can fail the call.
func (s *Service) CompleteLogin(ctx context.Context, w http.ResponseWriter, r *http.Request, l Login) (sessiontransport.Payload, error) {
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	if strings.TrimSpace(l.UserID) == "" || l.Email == "" {
		return sessiontransport.Payload{}, ErrInvalidLogin
	}

	p, err := s.transport.Issue(w, r, sessiontransport.Claims{UserID: l.UserID, Email: l.Email})
	if err != nil {
		return sessiontransport.Payload{}, fmt.Errorf("issue session: %w", err)
	}

	s.track(ctx, r, l, p)
	return p, nil
}

func (s *Service) track(ctx context.Context, r *http.Request, l Login, p sessiontransport.Payload) {
	log := s.log.With(logger.UserID(l.UserID), logger.SessionID(p.SID))
	id := s.resolver.Resolve(r)

	deviceID, err := s.registry.UpsertDevice(ctx, l.UserID, id)
	if err != nil {
		log.WarnContext(ctx, "device tracking failed", logger.Error(err))
		deviceID = uuid.Nil
	}
	err = s.registry.UpsertSession(ctx, session.Params{
		UserID:   l.UserID,
		SID:      p.SID,
		DeviceID: deviceID,
		Method:   l.Method,
		Flow:     l.Flow,
	})
	if err != nil {
		log.WarnContext(ctx, "session tracking failed", logger.Error(err))
	}
}

// BeginStepUp mints a two-factor ticket for the pending login l.
func (s *Service) BeginStepUp(l Login) (string, error) {
	return s.codecs.TwoFactor.Encode(handoff.TwoFactor{
		UserID:   l.UserID,
		Email:    strings.ToLower(strings.TrimSpace(l.Email)),
		FullName: l.FullName,
		Method:   l.Method,
		Flow:     l.Flow,
		Next:     l.Next,
		Remember: l.Remember,
	})
}

// PendingLogin decodes a two-factor ticket.
func (s *Service) PendingLogin(tok string) (handoff.TwoFactor, error) {
	tf, _, err := s.codecs.TwoFactor.Decode(tok)
	if err != nil {
		return handoff.TwoFactor{}, errors.Join(ErrInvalidTicket, err)
	}
	return tf, nil
}

// ShouldBypassStepUp reports whether r presents a live trusted-device token for email.
func (s *Service) ShouldBypassStepUp(ctx context.Context, r *http.Request, email string) bool {
	tok, err := s.trustKey.Get(r)
	if err != nil {
		return false
	}
	ok, err := s.trust.Check(ctx, email, tok)
	if err != nil {
		s.log.WarnContext(ctx, "trusted device check failed", logger.Email(email), logger.Error(err))
	}
	return ok
}

// CompleteStepUp finishes a login whose second factor succeeded. When the pending
// login asked to be remembered, a trusted-device cookie is issued as well.
func (s *Service) CompleteStepUp(ctx context.Context, w http.ResponseWriter, r *http.Request, tf handoff.TwoFactor) (sessiontransport.Payload, error) {
	p, err := s.CompleteLogin(ctx, w, r, pendingLogin(tf))
	if err != nil {
		return sessiontransport.Payload{}, err
	}

	if tf.Remember {
		if err := s.rememberDevice(ctx, w, tf.Email); err != nil {
			s.log.WarnContext(ctx, "trusted device not issued", logger.UserID(tf.UserID), logger.Error(err))
		}
	}
	return p, nil
}

func pendingLogin(tf handoff.TwoFactor) Login {
	return Login{
		UserID:   tf.UserID,
		Email:    tf.Email,
		FullName: tf.FullName,
		Method:   tf.Method,
		Flow:     tf.Flow,
		Next:     tf.Next,
	}
}

func (s *Service) rememberDevice(ctx context.Context, w http.ResponseWriter, email string) error {
	tok, _, err := s.trust.Issue(ctx, email)
	if err != nil {
		return err
	}
	return s.trustKey.Set(w, tok, s.trust.TTL())
}

// Principal is the authenticated caller.
type Principal struct {
	UserID    string
	Email     string
	SID       string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Status    session.Status
}

// Authenticate verifies the session cookie of r and consults the registry.
func (s *Service) Authenticate(ctx context.Context, r *http.Request) (Principal, error) {
	p, err := s.transport.Read(r)
	if err != nil {
		return Principal{}, errors.Join(ErrUnauthenticated, err)
	}

	st, err := s.registry.ValidateAndTouch(ctx, session.Ref{
		UserID:   p.UserID,
		Email:    p.Email,
		SID:      p.SID,
		Identify: func() device.Identity { return s.resolver.Resolve(r) },
	}, s.cfg.Registry.SeedIfMissing)
	if err != nil {
		return Principal{}, errors.Join(ErrUnauthenticated, err)
	}

	return Principal{
		UserID:    p.UserID,
		Email:     p.Email,
		SID:       p.SID,
		IssuedAt:  p.Issued(),
		ExpiresAt: p.Expires(),
		Status:    st,
	}, nil
}

// Logout revokes the current session, if any, and clears the session cookie.
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	defer s.transport.Clear(w)

	p, err := s.transport.Read(r)
	if err != nil || !p.Identified() {
		return
	}
	if err := s.registry.Revoke(ctx, p.UserID, p.SID, "logout"); err != nil {
		s.log.WarnContext(ctx, "session revoke failed", logger.UserID(p.UserID), logger.SessionID(p.SID), logger.Error(err))
	}
}

// ExchangeURL mints an exchange ticket for l and returns the redirect to endpoint.
// It fails unless cookies are host-only.
func (s *Service) ExchangeURL(l Login, endpoint string) (string, error) {
	if !s.cookies.HostOnly() {
		return "", ErrExchangeUnavailable
	}
	tok, err := s.exchange.Mint(handoff.Exchange{
		UserID:   l.UserID,
		Email:    strings.ToLower(strings.TrimSpace(l.Email)),
		FullName: l.FullName,
		Next:     l.Next,
	})
	if err != nil {
		return "", err
	}
	return exchange.RedirectURL(endpoint, tok, l.Next)
}

// NextLocation returns where a browser goes after l signed in on r. With
// host-only cookies an absolute next on another host is routed through that
// host's exchange endpoint so the session follows the user there.
func (s *Service) NextLocation(ctx context.Context, r *http.Request, l Login) string {
	next := s.SafeNext(l.Next, "/")
	if !s.cookies.HostOnly() {
		return next
	}
	u, err := url.Parse(next)
	if err != nil || !u.IsAbs() || strings.EqualFold(u.Host, r.Host) {
		return next
	}

	l.Next = next
	target, err := s.ExchangeURL(l, u.Scheme+"://"+u.Host+s.cfg.ExchangePath)
	if err != nil {
		s.log.WarnContext(ctx, "exchange redirect failed", logger.UserID(l.UserID), logger.Error(err))
		return next
	}
	return target
}

func (s *Service) issueExchanged(ctx context.Context, w http.ResponseWriter, r *http.Request, c handoff.Exchange) error {
	_, err := s.CompleteLogin(ctx, w, r, Login{
		UserID:   c.UserID,
		Email:    c.Email,
		FullName: c.FullName,
		Method:   "exchange",
		Flow:     "exchange",
	})
	return err
}

// SafeNext returns next when it is an acceptable redirect target, else fallback.
func (s *Service) SafeNext(next, fallback string) string {
	if v, ok := s.exchange.SafeNext(next); ok {
		return v
	}
	return fallback
}
