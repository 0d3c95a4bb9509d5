package auth

import (
	"github.com/dmitrymomot/gatekeeper/core/cookie"
	"github.com/dmitrymomot/gatekeeper/core/exchange"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/core/sessiontransport"
	"github.com/dmitrymomot/gatekeeper/core/trust"
)

// Config is the complete, immutable configuration of the auth core. It is built
// once at startup and passed to New.
type Config struct {
	Secret        string   `env:"AUTH_SECRET,required"`
	DeviceSeed    string   `env:"AUTH_DEVICE_SEED"`
	LoginPath     string   `env:"AUTH_LOGIN_PATH" envDefault:"/login"`
	StepUpPath    string   `env:"AUTH_STEP_UP_PATH" envDefault:"/login/2fa"`
	ExchangePath  string   `env:"AUTH_EXCHANGE_PATH" envDefault:"/auth/exchange"`
	PasskeyApexes []string `env:"AUTH_PASSKEY_APEXES" envSeparator:","`

	Cookie   cookie.Config
	Session  sessiontransport.Config
	Registry session.Config
	Trust    trust.Config
	Exchange exchange.Config
	OAuth    oauth.Config
}

// DefaultConfig returns defaults for everything but the secret.
func DefaultConfig() Config {
	return Config{
		LoginPath:    "/login",
		StepUpPath:   "/login/2fa",
		ExchangePath: "/auth/exchange",
		Cookie:     cookie.DefaultConfig(),
		Session:    sessiontransport.DefaultConfig(),
		Registry: session.Config{
			TouchWindow:   session.DefaultTouchWindow,
			SeedIfMissing: true,
		},
		Trust:    trust.Config{Days: trust.DefaultDays, CookieName: "tdt"},
		Exchange: exchange.Config{LoginPath: "/login", DefaultNext: "/"},
		OAuth:    oauth.DefaultConfig(),
	}
}
