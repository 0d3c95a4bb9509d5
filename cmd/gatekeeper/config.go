package main

import "time"

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"gatekeeper"`
	Production  bool   `env:"PRODUCTION" envDefault:"false"`

	// TrustedProxies lists the addresses and CIDRs whose forwarding headers
	// are believed. Empty keeps the loopback and private ranges.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Storage selects the persistence backend: "memory" or "postgres".
	Storage string `env:"STORAGE" envDefault:"memory"`
	// Mailer selects delivery of step-up codes: "dev" or "postmark".
	Mailer  string `env:"MAILER" envDefault:"dev"`
	MailDir string `env:"MAIL_DIR" envDefault:"./tmp/mail"`

	// StepUpOAuth requires a second factor after every OAuth login.
	StepUpOAuth bool `env:"AUTH_STEP_UP_OAUTH" envDefault:"true"`

	GoogleClientID     string `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH_GOOGLE_CLIENT_SECRET"`
	PublicURL          string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// A generic OpenID Connect provider registered as "oidc".
	OIDCClientID     string `env:"OAUTH_OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"OAUTH_OIDC_CLIENT_SECRET"`
	OIDCAuthURL      string `env:"OAUTH_OIDC_AUTH_URL"`
	OIDCTokenURL     string `env:"OAUTH_OIDC_TOKEN_URL"`
	OIDCUserInfoURL  string `env:"OAUTH_OIDC_USERINFO_URL"`

	NotifyAttempts int           `env:"NOTIFY_ATTEMPTS" envDefault:"3"`
	NotifyTimeout  time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}
