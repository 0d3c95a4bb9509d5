package session

import (
	"log/slog"
	"time"
)

const (
	// DefaultTouchWindow is how stale lastSeenAt may get before it is rewritten.
	DefaultTouchWindow = 120 * time.Second
	// MinTouchWindow is the floor applied to any configured window.
	MinTouchWindow = 30 * time.Second
)

// Config holds registry settings loadable from the environment.
type Config struct {
	TouchWindow   time.Duration `env:"SESSION_TOUCH_WINDOW" envDefault:"120s"`
	SeedIfMissing bool          `env:"SESSION_SEED_IF_MISSING" envDefault:"true"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithTouchWindow sets the touch window. Values below MinTouchWindow are raised to it.
func WithTouchWindow(d time.Duration) Option {
	return func(r *Registry) {
		r.touchWindow = clampWindow(d)
	}
}

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func clampWindow(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTouchWindow
	}
	return max(d, MinTouchWindow)
}
