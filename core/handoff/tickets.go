package handoff

import (
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

// Ticket lifetimes.
const (
	OAuthStateTTL       = 10 * time.Minute
	TwoFactorTTL        = 8 * time.Minute
	PasskeyChallengeTTL = 5 * time.Minute
	ExchangeTTL         = 5 * time.Minute
	EmailCodeTTL        = 10 * time.Minute
)

// OAuthState travels through an OAuth provider round trip.
type OAuthState struct {
	Next     string `json:"next"`
	Intent   string `json:"intent"`
	Provider string `json:"provider,omitempty"`
	// Seed derives the PKCE verifier server-side; the verifier itself never
	// travels in the state.
	Seed string `json:"seed,omitempty"`
}

func (OAuthState) TicketType() string { return "oauth_state" }

// TwoFactor is a pending login that passed its first factor.
type TwoFactor struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Method   string `json:"method"`
	Flow     string `json:"flow,omitempty"`
	Next     string `json:"next,omitempty"`
	Remember bool   `json:"remember,omitempty"`
}

func (TwoFactor) TicketType() string { return "two_factor" }

// PasskeyChallenge carries a pending login plus the WebAuthn challenge issued for it.
type PasskeyChallenge struct {
	TwoFactor
	Challenge string `json:"challenge"`
	Origin    string `json:"origin,omitempty"`
	RPID      string `json:"rpId"`
}

func (PasskeyChallenge) TicketType() string { return "passkey_challenge" }

// EmailCode carries a pending login plus a MAC of the one-time code mailed for it.
type EmailCode struct {
	TwoFactor
	Salt    string `json:"salt"`
	CodeMAC string `json:"codeMac"`
}

func (EmailCode) TicketType() string { return "email_code" }

// Exchange transplants an authenticated identity to another host.
type Exchange struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Next     string `json:"next,omitempty"`
}

func (Exchange) TicketType() string { return "exchange" }

// Codecs holds one codec per ticket variant.
type Codecs struct {
	OAuthState       ticket.Codec[OAuthState]
	TwoFactor        ticket.Codec[TwoFactor]
	PasskeyChallenge ticket.Codec[PasskeyChallenge]
	Exchange         ticket.Codec[Exchange]
	EmailCode        ticket.Codec[EmailCode]
}

// NewCodecs builds codecs for every variant with the default lifetimes.
func NewCodecs(key []byte, opts ...ticket.Option) Codecs {
	return Codecs{
		OAuthState:       ticket.NewCodec[OAuthState](key, OAuthStateTTL, opts...),
		TwoFactor:        ticket.NewCodec[TwoFactor](key, TwoFactorTTL, opts...),
		PasskeyChallenge: ticket.NewCodec[PasskeyChallenge](key, PasskeyChallengeTTL, opts...),
		Exchange:         ticket.NewCodec[Exchange](key, ExchangeTTL, opts...),
		EmailCode:        ticket.NewCodec[EmailCode](key, EmailCodeTTL, opts...),
	}
}
