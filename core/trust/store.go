package trust

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is a persisted trusted-device token.
type Record struct {
	ID         uuid.UUID
	Email      string
	TokenHash  string
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// Store persists trusted-device tokens. Emails are passed normalized.
type Store interface {
	InsertTrusted(ctx context.Context, rec Record) error
	// FindTrusted returns the row matching (email, tokenHash) or ErrNotFound.
	FindTrusted(ctx context.Context, email, tokenHash string) (Record, error)
	MarkTrustedUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeTrusted(ctx context.Context, email, tokenHash string, at time.Time) error
	RevokeAllTrusted(ctx context.Context, email string, at time.Time) (int64, error)
}
