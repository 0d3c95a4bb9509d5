package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekeeper/core/passkey"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/core/trust"
)

var (
	_ session.Store = (*Store)(nil)
	_ trust.Store   = (*Store)(nil)
	_ passkey.Store = (*Store)(nil)
)

type key struct{ a, b string }

// Store keeps every record in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	devices  map[key]session.Device
	sessions map[key]session.Record
	trusted  map[key]trust.Record
	passkeys map[key]passkey.Credential
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		devices:  make(map[key]session.Device),
		sessions: make(map[key]session.Record),
		trusted:  make(map[key]trust.Record),
		passkeys: make(map[key]passkey.Credential),
	}
}

// BumpDevice implements session.Store.
func (s *Store) BumpDevice(_ context.Context, userID, fingerprint string, seen session.Sighting) (session.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, fingerprint}
	d, ok := s.devices[k]
	if !ok {
		return session.Device{}, session.ErrNotFound
	}
	d.LoginCount++
	d.LastSeenAt = seen.At
	if seen.IP != "" {
		d.LastIP = seen.IP
	}
	if seen.Location != "" {
		d.LastLocation = seen.Location
	}
	s.devices[k] = d
	return d, nil
}

// InsertDevice implements session.Store.
func (s *Store) InsertDevice(_ context.Context, d session.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{d.UserID, d.Fingerprint}
	if _, ok := s.devices[k]; ok {
		return session.ErrConflict
	}
	s.devices[k] = d
	return nil
}

// ListDevices implements session.Store. Most recently seen first.
func (s *Store) ListDevices(_ context.Context, userID string) ([]session.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []session.Device
	for k, d := range s.devices {
		if k.a == userID {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b session.Device) int { return b.LastSeenAt.Compare(a.LastSeenAt) })
	return out, nil
}

// FindSession implements session.Store.
func (s *Store) FindSession(_ context.Context, userID, sid string) (session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[key{userID, sid}]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

// LatestDeviceSession implements session.Store.
func (s *Store) LatestDeviceSession(_ context.Context, userID string, deviceID uuid.UUID) (session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best  session.Record
		found bool
	)
	for _, rec := range s.sessions {
		if rec.UserID != userID || rec.DeviceID != deviceID || rec.Revoked() {
			continue
		}
		if !found || rec.LastSeenAt.After(best.LastSeenAt) {
			best, found = rec, true
		}
	}
	if !found {
		return session.Record{}, session.ErrNotFound
	}
	return best, nil
}

// InsertSession implements session.Store.
func (s *Store) InsertSession(_ context.Context, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{rec.UserID, rec.SID}
	if _, ok := s.sessions[k]; ok {
		return session.ErrConflict
	}
	s.sessions[k] = rec
	return nil
}

// UpdateSession implements session.Store.
func (s *Store) UpdateSession(_ context.Context, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey, cur, ok := s.sessionByID(rec.ID)
	if !ok {
		return session.ErrNotFound
	}
	newKey := key{cur.UserID, rec.SID}
	if newKey != oldKey {
		if _, taken := s.sessions[newKey]; taken {
			return session.ErrConflict
		}
		delete(s.sessions, oldKey)
	}
	cur.SID = rec.SID
	cur.LoginMethod = rec.LoginMethod
	cur.LoginFlow = rec.LoginFlow
	cur.LastSeenAt = rec.LastSeenAt
	s.sessions[newKey] = cur
	return nil
}

// TouchSession implements session.Store.
func (s *Store) TouchSession(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, rec, ok := s.sessionByID(id)
	if !ok {
		return session.ErrNotFound
	}
	rec.LastSeenAt = at
	s.sessions[k] = rec
	return nil
}

// RevokeSession implements session.Store.
func (s *Store) RevokeSession(_ context.Context, userID, sid, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, sid}
	rec, ok := s.sessions[k]
	if !ok {
		return session.ErrNotFound
	}
	if rec.RevokedAt == nil {
		rec.RevokedAt = &at
		rec.RevokedReason = reason
		s.sessions[k] = rec
	}
	return nil
}

// RevokeUserSessions implements session.Store.
func (s *Store) RevokeUserSessions(_ context.Context, userID, reason string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.sessions {
		if rec.UserID != userID || rec.Revoked() {
			continue
		}
		rec.RevokedAt = &at
		rec.RevokedReason = reason
		s.sessions[k] = rec
		n++
	}
	return n, nil
}

// ListSessions implements session.Store. Most recently seen first.
func (s *Store) ListSessions(_ context.Context, userID string) ([]session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []session.Record
	for _, rec := range s.sessions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b session.Record) int { return b.LastSeenAt.Compare(a.LastSeenAt) })
	return out, nil
}

func (s *Store) sessionByID(id uuid.UUID) (key, session.Record, bool) {
	for k, rec := range s.sessions {
		if rec.ID == id {
			return k, rec, true
		}
	}
	return key{}, session.Record{}, false
}

// InsertTrusted implements trust.Store.
func (s *Store) InsertTrusted(_ context.Context, rec trust.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trusted[key{rec.Email, rec.TokenHash}] = rec
	return nil
}

// FindTrusted implements trust.Store.
func (s *Store) FindTrusted(_ context.Context, email, tokenHash string) (trust.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.trusted[key{email, tokenHash}]
	if !ok {
		return trust.Record{}, trust.ErrNotFound
	}
	return rec, nil
}

// MarkTrustedUsed implements trust.Store.
func (s *Store) MarkTrustedUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.trusted {
		if rec.ID == id {
			rec.LastUsedAt = at
			s.trusted[k] = rec
			return nil
		}
	}
	return trust.ErrNotFound
}

// RevokeTrusted implements trust.Store.
func (s *Store) RevokeTrusted(_ context.Context, email, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{email, tokenHash}
	rec, ok := s.trusted[k]
	if !ok {
		return trust.ErrNotFound
	}
	if rec.RevokedAt == nil {
		rec.RevokedAt = &at
		s.trusted[k] = rec
	}
	return nil
}

// RevokeAllTrusted implements trust.Store.
func (s *Store) RevokeAllTrusted(_ context.Context, email string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.trusted {
		if rec.Email != email || rec.RevokedAt != nil {
			continue
		}
		rec.RevokedAt = &at
		s.trusted[k] = rec
		n++
	}
	return n, nil
}

// AddCredential registers a passkey. Registration ceremonies live outside this
// module; the method exists to seed credentials.
func (s *Store) AddCredential(_ context.Context, c passkey.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{c.UserID, c.ID}
	if _, ok := s.passkeys[k]; ok {
		return session.ErrConflict
	}
	s.passkeys[k] = c
	return nil
}

// ListCredentials implements passkey.Store. Oldest first.
func (s *Store) ListCredentials(_ context.Context, userID string) ([]passkey.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []passkey.Credential
	for k, c := range s.passkeys {
		if k.a == userID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b passkey.Credential) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// UpdateCounter implements passkey.Store.
func (s *Store) UpdateCounter(_ context.Context, userID, credentialID string, count uint32, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, credentialID}
	c, ok := s.passkeys[k]
	if !ok {
		return passkey.ErrUnknownCredential
	}
	c.SignCount = count
	c.LastUsedAt = &at
	s.passkeys[k] = c
	return nil
}
