package ticket

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const nonceSize = 16

// Variant is implemented by every concrete ticket payload.
// TicketType returns the discriminator stored in the typ field.
type Variant interface {
	TicketType() string
}

// Header holds the envelope fields shared by every ticket.
type Header struct {
	Type      string `json:"typ"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"nonce"`
}

// Issued returns iat as time.Time.
func (h Header) Issued() time.Time { return time.UnixMilli(h.IssuedAt) }

// Expires returns exp as time.Time.
func (h Header) Expires() time.Time { return time.UnixMilli(h.ExpiresAt) }

// Encode signs payload as a ticket valid for ttl from now.
func Encode[T Variant](payload T, secret []byte, ttl time.Duration) (string, error) {
	tok, _, err := encodeAt(payload, secret, ttl, time.Now())
	return tok, err
}

// Decode verifies token and returns its payload.
// The expected ticket type is the one reported by T.
func Decode[T Variant](token string, secret []byte) (T, error) {
	payload, _, err := decodeAt[T](token, secret, time.Now())
	return payload, err
}

func encodeAt[T Variant](payload T, secret []byte, ttl time.Duration, now time.Time) (string, Header, error) {
	if len(secret) == 0 {
		return "", Header{}, ErrNoSecret
	}
	if ttl <= 0 {
		return "", Header{}, ErrInvalidTTL
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", Header{}, fmt.Errorf("ticket: failed to generate nonce: %w", err)
	}

	hdr := Header{
		Type:      payload.TicketType(),
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
		Nonce:     base64.RawURLEncoding.EncodeToString(nonce),
	}

	body, err := merge(payload, hdr)
	if err != nil {
		return "", Header{}, err
	}

	tok, err := Seal(body, secret)
	if err != nil {
		return "", Header{}, err
	}
	return tok, hdr, nil
}

func decodeAt[T Variant](token string, secret []byte, now time.Time) (T, Header, error) {
	var zero T

	body, err := Open(token, secret)
	if err != nil {
		return zero, Header{}, err
	}

	var hdr Header
	if err := json.Unmarshal(body, &hdr); err != nil {
		return zero, Header{}, ErrMalformed
	}

	if hdr.Type != zero.TicketType() {
		return zero, hdr, ErrTypeMismatch
	}
	if now.UnixMilli() >= hdr.ExpiresAt {
		return zero, hdr, ErrExpired
	}

	var payload T
	if err := json.Unmarshal(body, &payload); err != nil {
		return zero, hdr, ErrMalformed
	}

	return payload, hdr, nil
}

// Seal signs an arbitrary body into the ticket wire format. No envelope fields are
// added; callers that need expiry must carry and check it themselves.
func Seal(body, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + sign(encoded, secret), nil
}

// Open verifies the signature of token and returns the decoded body.
func Open(token string, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}

	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" || strings.Contains(sig, ".") {
		return nil, ErrMalformed
	}

	// Compare the encoded form so that any change to the signature segment,
	// including non-canonical base64 trailing bits, is rejected.
	if subtle.ConstantTimeCompare([]byte(sig), []byte(sign(encoded, secret))) != 1 {
		return nil, ErrSignatureInvalid
	}

	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformed
	}
	return body, nil
}

// merge flattens payload fields and envelope fields into one JSON object.
// Envelope fields win on key collision.
func merge(payload any, hdr Header) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ticket: failed to marshal payload: %w", err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("ticket: payload must be a JSON object: %w", err)
	}

	hdrRaw, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("ticket: failed to marshal header: %w", err)
	}
	var hdrFields map[string]json.RawMessage
	if err := json.Unmarshal(hdrRaw, &hdrFields); err != nil {
		return nil, fmt.Errorf("ticket: failed to marshal header: %w", err)
	}
	for k, v := range hdrFields {
		fields[k] = v
	}

	return json.Marshal(fields)
}

func mac(data string, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func sign(data string, secret []byte) string {
	return base64.RawURLEncoding.EncodeToString(mac(data, secret))
}
