package cookie

import (
	"net/http"
	"strings"
)

// Mode selects the cookie naming policy.
type Mode string

const (
	ModeHostOnly     Mode = "host_only"
	ModeSharedDomain Mode = "shared_domain"
)

// HostPrefix is prepended to names in host-only mode.
const HostPrefix = "__Host-"

// Config provides environment-based configuration for the cookie manager.
type Config struct {
	Mode     Mode   `env:"COOKIE_MODE" envDefault:"host_only"`
	Domain   string `env:"COOKIE_DOMAIN" envDefault:""`
	Secure   bool   `env:"COOKIE_SECURE" envDefault:"true"`
	SameSite string `env:"COOKIE_SAME_SITE" envDefault:"lax"`
	MaxSize  int    `env:"COOKIE_MAX_SIZE" envDefault:"4096"`
}

// DefaultConfig returns a Config with secure defaults.
func DefaultConfig() Config {
	return Config{
		Mode:     ModeHostOnly,
		Secure:   true,
		SameSite: "lax",
		MaxSize:  MaxCookieSize,
	}
}

// ParseSameSite maps "lax", "strict", "none" and "default" to http.SameSite.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, ErrInvalidSameSite
	}
}
