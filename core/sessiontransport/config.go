package sessiontransport

import "time"

// Config provides environment-based configuration for the session cookie.
type Config struct {
	CookieName       string        `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	DeviceCookieName string        `env:"SESSION_DEVICE_COOKIE_NAME" envDefault:"did"`
	TTL              time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	DeviceTTL        time.Duration `env:"SESSION_DEVICE_TTL" envDefault:"17520h"`
	BindDevice       bool          `env:"SESSION_BIND_DEVICE" envDefault:"true"`
	BindUA           bool          `env:"SESSION_BIND_UA" envDefault:"false"`
	BindIP           bool          `env:"SESSION_BIND_IP" envDefault:"true"`
	AllowLegacy      bool          `env:"SESSION_ALLOW_LEGACY" envDefault:"false"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:       "session",
		DeviceCookieName: "did",
		TTL:              30 * 24 * time.Hour,
		DeviceTTL:        2 * 365 * 24 * time.Hour,
		BindDevice:       true,
		BindUA:           false,
		BindIP:           true,
		AllowLegacy:      false,
	}
}

func (c Config) anyBind() bool {
	return c.BindDevice || c.BindUA || c.BindIP
}
