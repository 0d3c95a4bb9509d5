package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekeeper/pkg/secrets"
)

const (
	DefaultDays = 15
	MinDays     = 1
	MaxDays     = 60

	tokenBytes = 32
)

// Config holds trust settings loadable from the environment.
type Config struct {
	Days       int    `env:"TRUST_DAYS" envDefault:"15"`
	CookieName string `env:"TRUST_COOKIE_NAME" envDefault:"tdt"`
}

// Option configures a Service.
type Option func(*Service)

// WithDays sets the token lifetime in days, clamped to [MinDays, MaxDays].
func WithDays(days int) Option {
	return func(s *Service) { s.days = ClampDays(days) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service issues and checks trusted-device tokens.
type Service struct {
	store Store
	days  int
	now   func() time.Time
}

// New creates a Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, days: DefaultDays, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampDays bounds days to [MinDays, MaxDays]. Zero or negative means DefaultDays.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	return min(max(days, MinDays), MaxDays)
}

// TTL returns the token lifetime.
func (s *Service) TTL() time.Duration {
	return time.Duration(s.days) * 24 * time.Hour
}

// Issue mints a token for email and stores its hash.
func (s *Service) Issue(ctx context.Context, email string) (string, time.Time, error) {
	email = normalize(email)
	if email == "" {
		return "", time.Time{}, ErrInvalidEmail
	}

	token, err := secrets.RandomToken(tokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now().UTC()
	rec := Record{
		ID:         uuid.New(),
		Email:      email,
		TokenHash:  secrets.HashToken(token),
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(s.TTL()),
	}
	if err := s.store.InsertTrusted(ctx, rec); err != nil {
		return "", time.Time{}, fmt.Errorf("store trusted device: %w", err)
	}
	return token, rec.ExpiresAt, nil
}

// Check reports whether token is a live trusted-device token for email and
// refreshes its last use. A failure to record the use is returned with ok set.
func (s *Service) Check(ctx context.Context, email, token string) (bool, error) {
	email = normalize(email)
	if email == "" || token == "" {
		return false, nil
	}

	rec, err := s.store.FindTrusted(ctx, email, secrets.HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find trusted device: %w", err)
	}

	now := s.now().UTC()
	if rec.RevokedAt != nil || !now.Before(rec.ExpiresAt) {
		return false, nil
	}

	if err := s.store.MarkTrustedUsed(ctx, rec.ID, now); err != nil {
		return true, fmt.Errorf("mark trusted device used: %w", err)
	}
	return true, nil
}

// Revoke revokes a single token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, email, token string) error {
	email = normalize(email)
	if email == "" || token == "" {
		return nil
	}
	err := s.store.RevokeTrusted(ctx, email, secrets.HashToken(token), s.now().UTC())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("revoke trusted device: %w", err)
	}
	return nil
}

// RevokeAll revokes every token of email.
func (s *Service) RevokeAll(ctx context.Context, email string) (int64, error) {
	email = normalize(email)
	if email == "" {
		return 0, ErrInvalidEmail
	}
	return s.store.RevokeAllTrusted(ctx, email, s.now().UTC())
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
