package passkey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/pkg/secrets"
	"github.com/dmitrymomot/gatekeeper/pkg/ticket"
)

const challengeBytes = 32

// Assertion is the client response to navigator.credentials.get.
// Binary fields are base64url, padded or not.
type Assertion struct {
	CredentialID      string `json:"credentialId"`
	ClientDataJSON    string `json:"clientDataJSON"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
}

// StartResult is returned by Start.
type StartResult struct {
	Challenge        string   `json:"challenge"`
	RPID             string   `json:"rpId"`
	AllowCredentials []string `json:"allowCredentials"`
	Timeout          int64    `json:"timeout"`
	Ticket           string   `json:"ticket"`
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithApexes sets the registrable domains subdomains collapse to.
func WithApexes(apexes ...string) Option {
	return func(v *Verifier) { v.apexes = append(v.apexes, apexes...) }
}

// WithGuard makes Finish admit each challenge ticket once.
func WithGuard(g handoff.Guard) Option {
	return func(v *Verifier) { v.guard = g }
}

// WithClock overrides the time source used for counter updates.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// Verifier runs the passkey step-up ceremony.
type Verifier struct {
	store  Store
	codec  ticket.Codec[handoff.PasskeyChallenge]
	apexes []string
	guard  handoff.Guard
	now    func() time.Time
}

// New creates a Verifier.
func New(store Store, codec ticket.Codec[handoff.PasskeyChallenge], opts ...Option) *Verifier {
	v := &Verifier{store: store, codec: codec, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start issues a challenge for the pending login and embeds it in a signed ticket.
// origin is the scheme and host of the page running the ceremony.
func (v *Verifier) Start(ctx context.Context, pending handoff.TwoFactor, origin string) (StartResult, error) {
	host, err := originHost(origin)
	if err != nil {
		return StartResult{}, err
	}

	creds, err := v.store.ListCredentials(ctx, pending.UserID)
	if err != nil {
		return StartResult{}, fmt.Errorf("list credentials: %w", err)
	}
	if len(creds) == 0 {
		return StartResult{}, ErrNoCredentials
	}

	challenge, err := secrets.RandomToken(challengeBytes)
	if err != nil {
		return StartResult{}, err
	}

	rpID := ResolveRPID(host, v.apexes)
	tok, err := v.codec.Encode(handoff.PasskeyChallenge{
		TwoFactor: pending,
		Challenge: challenge,
		Origin:    strings.TrimRight(origin, "/"),
		RPID:      rpID,
	})
	if err != nil {
		return StartResult{}, err
	}

	allow := make([]string, 0, len(creds))
	for _, c := range creds {
		allow = append(allow, c.ID)
	}

	return StartResult{
		Challenge:        challenge,
		RPID:             rpID,
		AllowCredentials: allow,
		Timeout:          v.codec.TTL().Milliseconds(),
		Ticket:           tok,
	}, nil
}

// Finish verifies the assertion against the challenge ticket and returns the
// pending login it unlocks. No session must be issued when it returns an error.
func (v *Verifier) Finish(ctx context.Context, token string, a Assertion) (handoff.TwoFactor, error) {
	pc, hdr, err := v.codec.Decode(token)
	if err != nil {
		return handoff.TwoFactor{}, errors.Join(ErrInvalidTicket, err)
	}

	clientRaw, err := decodeB64(a.ClientDataJSON)
	if err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("%w: client data: %w", ErrMalformedAssertion, err)
	}
	var cd protocol.CollectedClientData
	if err := json.Unmarshal(clientRaw, &cd); err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("%w: client data json: %w", ErrMalformedAssertion, err)
	}

	if cd.Type != protocol.AssertCeremony {
		return handoff.TwoFactor{}, ErrCeremonyType
	}
	if subtle.ConstantTimeCompare([]byte(cd.Challenge), []byte(pc.Challenge)) != 1 {
		return handoff.TwoFactor{}, ErrChallengeMismatch
	}
	if err := checkOrigin(cd.Origin, pc); err != nil {
		return handoff.TwoFactor{}, err
	}

	cred, err := v.credential(ctx, pc.UserID, a.CredentialID)
	if err != nil {
		return handoff.TwoFactor{}, err
	}

	authRaw, err := decodeB64(a.AuthenticatorData)
	if err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("%w: authenticator data: %w", ErrMalformedAssertion, err)
	}
	var ad protocol.AuthenticatorData
	if err := ad.Unmarshal(authRaw); err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("%w: authenticator data: %w", ErrMalformedAssertion, err)
	}
	rpHash := sha256.Sum256([]byte(pc.RPID))
	if subtle.ConstantTimeCompare(ad.RPIDHash, rpHash[:]) != 1 {
		return handoff.TwoFactor{}, ErrRPIDMismatch
	}
	if !ad.Flags.UserPresent() {
		return handoff.TwoFactor{}, ErrUserNotPresent
	}

	sig, err := decodeB64(a.Signature)
	if err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("%w: signature: %w", ErrMalformedAssertion, err)
	}
	if err := verifySignature(cred.PublicKey, authRaw, clientRaw, sig); err != nil {
		return handoff.TwoFactor{}, err
	}

	if ad.Counter < cred.SignCount {
		return handoff.TwoFactor{}, ErrCounterRegression
	}

	if err := handoff.Check(ctx, v.guard, hdr.Nonce, hdr.Expires()); err != nil {
		return handoff.TwoFactor{}, errors.Join(ErrInvalidTicket, err)
	}

	if err := v.store.UpdateCounter(ctx, pc.UserID, cred.ID, ad.Counter, v.now().UTC()); err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("update counter: %w", err)
	}

	return pc.TwoFactor, nil
}

func (v *Verifier) credential(ctx context.Context, userID, id string) (Credential, error) {
	raw, err := decodeB64(id)
	if err != nil || len(raw) == 0 {
		return Credential{}, ErrUnknownCredential
	}
	want := base64.RawURLEncoding.EncodeToString(raw)

	creds, err := v.store.ListCredentials(ctx, userID)
	if err != nil {
		return Credential{}, fmt.Errorf("list credentials: %w", err)
	}
	for _, c := range creds {
		if c.ID == want {
			return c, nil
		}
	}
	return Credential{}, ErrUnknownCredential
}

func checkOrigin(origin string, pc handoff.PasskeyChallenge) error {
	host, err := originHost(origin)
	if err != nil {
		return ErrOriginMismatch
	}
	if pc.Origin != "" && strings.TrimRight(origin, "/") != pc.Origin {
		return ErrOriginMismatch
	}
	if !matchesRPID(host, pc.RPID) {
		return ErrOriginMismatch
	}
	return nil
}

// verifySignature checks sig over authenticatorData || SHA-256(clientDataJSON).
func verifySignature(publicKey, authRaw, clientRaw, sig []byte) error {
	key, err := webauthncose.ParsePublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("%w: public key: %w", ErrSignatureInvalid, err)
	}

	clientHash := sha256.Sum256(clientRaw)
	signed := make([]byte, 0, len(authRaw)+len(clientHash))
	signed = append(signed, authRaw...)
	signed = append(signed, clientHash[:]...)

	ok, err := webauthncose.VerifySignature(key, signed, sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	if !ok {
		return ErrSignatureInvalid
	}
	return nil
}

func originHost(origin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidOrigin
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", ErrInvalidOrigin
	}
	return u.Host, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
