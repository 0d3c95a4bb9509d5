package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/gatekeeper/core/session"
)

const deviceColumns = `id, user_id, fingerprint, kind, os_family, os_version, browser_family, browser_version,
	label, first_seen_at, last_seen_at, first_ip, last_ip, first_location, last_location, login_count`

func scanDevice(row pgx.Row) (session.Device, error) {
	var d session.Device
	err := row.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.Kind, &d.OSFamily, &d.OSVersion,
		&d.BrowserFamily, &d.BrowserVersion, &d.Label, &d.FirstSeenAt, &d.LastSeenAt,
		&d.FirstIP, &d.LastIP, &d.FirstLocation, &d.LastLocation, &d.LoginCount)
	return d, err
}

// BumpDevice implements session.Store.
func (s *Store) BumpDevice(ctx context.Context, userID, fingerprint string, seen session.Sighting) (session.Device, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE user_devices SET
			login_count = login_count + 1,
			last_seen_at = $3,
			last_ip = COALESCE(NULLIF($4, ''), last_ip),
			last_location = COALESCE(NULLIF($5, ''), last_location)
		WHERE user_id = $1 AND fingerprint = $2
		RETURNING `+deviceColumns,
		userID, fingerprint, seen.At, seen.IP, seen.Location)
	d, err := scanDevice(row)
	return d, sessionErr(err)
}

// InsertDevice implements session.Store.
func (s *Store) InsertDevice(ctx context.Context, d session.Device) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_devices (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		d.ID, d.UserID, d.Fingerprint, d.Kind, d.OSFamily, d.OSVersion, d.BrowserFamily, d.BrowserVersion,
		d.Label, d.FirstSeenAt, d.LastSeenAt, d.FirstIP, d.LastIP, d.FirstLocation, d.LastLocation, d.LoginCount)
	return sessionErr(err)
}

// ListDevices implements session.Store.
func (s *Store) ListDevices(ctx context.Context, userID string) ([]session.Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deviceColumns+` FROM user_devices
		WHERE user_id = $1
		ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, sessionErr(err)
	}
	defer rows.Close()

	var out []session.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, sessionErr(err)
		}
		out = append(out, d)
	}
	return out, sessionErr(rows.Err())
}

const sessionColumns = `id, user_id, sid, device_id, login_method, login_flow, issued_at, last_seen_at, revoked_at, revoked_reason`

func scanSession(row pgx.Row) (session.Record, error) {
	var (
		rec    session.Record
		device uuid.NullUUID
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.SID, &device, &rec.LoginMethod, &rec.LoginFlow,
		&rec.IssuedAt, &rec.LastSeenAt, &rec.RevokedAt, &rec.RevokedReason)
	if device.Valid {
		rec.DeviceID = device.UUID
	}
	return rec, err
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

// FindSession implements session.Store.
func (s *Store) FindSession(ctx context.Context, userID, sid string) (session.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions
		WHERE user_id = $1 AND sid = $2`, userID, sid)
	rec, err := scanSession(row)
	return rec, sessionErr(err)
}

// LatestDeviceSession implements session.Store.
func (s *Store) LatestDeviceSession(ctx context.Context, userID string, deviceID uuid.UUID) (session.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions
		WHERE user_id = $1 AND device_id = $2 AND revoked_at IS NULL
		ORDER BY last_seen_at DESC
		LIMIT 1`, userID, deviceID)
	rec, err := scanSession(row)
	return rec, sessionErr(err)
}

// InsertSession implements session.Store.
func (s *Store) InsertSession(ctx context.Context, rec session.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, rec.SID, nullUUID(rec.DeviceID), rec.LoginMethod, rec.LoginFlow,
		rec.IssuedAt, rec.LastSeenAt, rec.RevokedAt, rec.RevokedReason)
	return sessionErr(err)
}

// UpdateSession implements session.Store.
func (s *Store) UpdateSession(ctx context.Context, rec session.Record) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_sessions
		SET sid = $2, login_method = $3, login_flow = $4, last_seen_at = $5
		WHERE id = $1`,
		rec.ID, rec.SID, rec.LoginMethod, rec.LoginFlow, rec.LastSeenAt)
	if err != nil {
		return sessionErr(err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// TouchSession implements session.Store.
func (s *Store) TouchSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE user_sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return sessionErr(err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// RevokeSession implements session.Store. Revoking twice keeps the first reason.
func (s *Store) RevokeSession(ctx context.Context, userID, sid, reason string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_sessions
		SET revoked_at = COALESCE(revoked_at, $3),
			revoked_reason = CASE WHEN revoked_at IS NULL THEN $4 ELSE revoked_reason END
		WHERE user_id = $1 AND sid = $2`,
		userID, sid, at, reason)
	if err != nil {
		return sessionErr(err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// RevokeUserSessions implements session.Store.
func (s *Store) RevokeUserSessions(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_sessions SET revoked_at = $2, revoked_reason = $3
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, at, reason)
	if err != nil {
		return 0, sessionErr(err)
	}
	return tag.RowsAffected(), nil
}

// ListSessions implements session.Store.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]session.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions
		WHERE user_id = $1
		ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, sessionErr(err)
	}
	defer rows.Close()

	var out []session.Record
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, sessionErr(err)
		}
		out = append(out, rec)
	}
	return out, sessionErr(rows.Err())
}
