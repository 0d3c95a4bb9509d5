package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the minimum accepted application secret size in bytes.
const MinSecretLength = 32

const keySize = 32

// Purpose labels an HKDF derivation.
type Purpose string

const (
	PurposeTicket  Purpose = "gatekeeper/ticket/v1"
	PurposeSession Purpose = "gatekeeper/session/v1"
	PurposeBind    Purpose = "gatekeeper/bind/v1"
	PurposeCode    Purpose = "gatekeeper/code/v1"
	PurposePKCE    Purpose = "gatekeeper/pkce/v1"
)

// Keyring holds keys derived from one application secret.
// It is immutable after construction.
type Keyring struct {
	keys map[Purpose][]byte
}

// NewKeyring derives a key for every known purpose.
func NewKeyring(secret string) (*Keyring, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}

	ring := &Keyring{keys: make(map[Purpose][]byte, 5)}
	for _, p := range []Purpose{PurposeTicket, PurposeSession, PurposeBind, PurposeCode, PurposePKCE} {
		key, err := DeriveKey([]byte(secret), p)
		if err != nil {
			return nil, err
		}
		ring.keys[p] = key
	}

	return ring, nil
}

// Key returns a copy of the key for purpose, deriving nothing new.
// Unknown purposes return nil so that consumers fail closed.
func (k *Keyring) Key(p Purpose) []byte {
	key, ok := k.keys[p]
	if !ok {
		return nil
	}
	out := make([]byte, len(key))
	copy(out, key)
	return out
}

// DeriveKey derives a 32-byte key from secret for purpose using HKDF-SHA256.
func DeriveKey(secret []byte, p Purpose) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(p))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("secrets: failed to derive key: %w", err)
	}
	return key, nil
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("secrets: failed to read random bytes: %w", err)
	}
	return b, nil
}

// RandomHex returns n random bytes hex-encoded.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomToken returns n random bytes base64url-encoded without padding.
func RandomToken(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether a and b are equal in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
