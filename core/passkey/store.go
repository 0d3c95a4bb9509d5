package passkey

import (
	"context"
	"time"
)

// Credential is a registered passkey.
type Credential struct {
	UserID string
	// ID is the raw credential id, base64url without padding.
	ID string
	// PublicKey is the COSE-encoded credential public key.
	PublicKey  []byte
	SignCount  uint32
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Store reads passkeys and records their use.
type Store interface {
	ListCredentials(ctx context.Context, userID string) ([]Credential, error)
	UpdateCounter(ctx context.Context, userID, credentialID string, count uint32, at time.Time) error
}
