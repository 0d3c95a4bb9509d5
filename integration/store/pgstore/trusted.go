package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekeeper/core/trust"
)

// InsertTrusted implements trust.Store.
func (s *Store) InsertTrusted(ctx context.Context, rec trust.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trusted_devices (id, email, token_hash, created_at, last_used_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Email, rec.TokenHash, rec.CreatedAt, rec.LastUsedAt, rec.ExpiresAt, rec.RevokedAt)
	return trustErr(err)
}

// FindTrusted implements trust.Store.
func (s *Store) FindTrusted(ctx context.Context, email, tokenHash string) (trust.Record, error) {
	var rec trust.Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, token_hash, created_at, last_used_at, expires_at, revoked_at
		FROM trusted_devices
		WHERE email = $1 AND token_hash = $2`, email, tokenHash).
		Scan(&rec.ID, &rec.Email, &rec.TokenHash, &rec.CreatedAt, &rec.LastUsedAt, &rec.ExpiresAt, &rec.RevokedAt)
	return rec, trustErr(err)
}

// MarkTrustedUsed implements trust.Store.
func (s *Store) MarkTrustedUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE trusted_devices SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return trustErr(err)
	}
	if tag.RowsAffected() == 0 {
		return trust.ErrNotFound
	}
	return nil
}

// RevokeTrusted implements trust.Store.
func (s *Store) RevokeTrusted(ctx context.Context, email, tokenHash string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trusted_devices SET revoked_at = COALESCE(revoked_at, $3)
		WHERE email = $1 AND token_hash = $2`, email, tokenHash, at)
	if err != nil {
		return trustErr(err)
	}
	if tag.RowsAffected() == 0 {
		return trust.ErrNotFound
	}
	return nil
}

// RevokeAllTrusted implements trust.Store.
func (s *Store) RevokeAllTrusted(ctx context.Context, email string, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trusted_devices SET revoked_at = $2
		WHERE email = $1 AND revoked_at IS NULL`, email, at)
	if err != nil {
		return 0, trustErr(err)
	}
	return tag.RowsAffected(), nil
}
