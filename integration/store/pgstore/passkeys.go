package pgstore

import (
	"context"
	"time"

	"github.com/dmitrymomot/gatekeeper/core/passkey"
)

// AddCredential stores a registered passkey.
func (s *Store) AddCredential(ctx context.Context, c passkey.Credential) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO passkey_credentials (user_id, credential_id, public_key, sign_count, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.UserID, c.ID, c.PublicKey, int64(c.SignCount), createdAt, c.LastUsedAt)
	return sessionErr(err)
}

// ListCredentials implements passkey.Store.
func (s *Store) ListCredentials(ctx context.Context, userID string) ([]passkey.Credential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, credential_id, public_key, sign_count, created_at, last_used_at
		FROM passkey_credentials
		WHERE user_id = $1
		ORDER BY created_at, credential_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []passkey.Credential
	for rows.Next() {
		var (
			c     passkey.Credential
			count int64
		)
		if err := rows.Scan(&c.UserID, &c.ID, &c.PublicKey, &count, &c.CreatedAt, &c.LastUsedAt); err != nil {
			return nil, err
		}
		c.SignCount = uint32(count)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCounter implements passkey.Store.
func (s *Store) UpdateCounter(ctx context.Context, userID, credentialID string, count uint32, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE passkey_credentials SET sign_count = $3, last_used_at = $4
		WHERE user_id = $1 AND credential_id = $2`,
		userID, credentialID, int64(count), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return passkey.ErrUnknownCredential
	}
	return nil
}
