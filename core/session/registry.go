package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekeeper/core/device"
	"github.com/dmitrymomot/gatekeeper/core/logger"
)

// Reason explains a Status.
type Reason string

const (
	ReasonLegacy        Reason = "legacy"
	ReasonSeeded        Reason = "seeded"
	ReasonMissing       Reason = "missing"
	ReasonRevoked       Reason = "revoked"
	ReasonTouched       Reason = "touched"
	ReasonFresh         Reason = "fresh"
	ReasonSchemaMissing Reason = "schema_missing"
	ReasonStoreError    Reason = "store_error"
)

// Status is the outcome of ValidateAndTouch.
type Status struct {
	Active bool
	Reason Reason
}

// Ref identifies a tracked session as carried by the session cookie.
type Ref struct {
	UserID   string
	Email    string
	SID      string
	DeviceID uuid.UUID
	// Identify resolves the caller's device when a missing row is seeded
	// without a DeviceID.
	Identify func() device.Identity
}

// Legacy reports whether the reference predates session tracking.
func (r Ref) Legacy() bool {
	return r.UserID == "" || r.Email == "" || r.SID == ""
}

// Params describe a login being recorded.
type Params struct {
	UserID   string
	SID      string
	DeviceID uuid.UUID
	Method   string
	Flow     string
}

// Registry records devices and sessions in a Store.
// It is safe for concurrent use.
type Registry struct {
	store       Store
	log         *slog.Logger
	now         func() time.Time
	touchWindow time.Duration
}

// NewRegistry creates a registry over store.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		log:         slog.Default(),
		now:         time.Now,
		touchWindow: DefaultTouchWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("session.registry"))
	return r
}

// TouchWindow returns the effective touch window.
func (r *Registry) TouchWindow() time.Duration { return r.touchWindow }

// UpsertDevice records a login from id for userID and returns the device row id.
// Errors are soft.
func (r *Registry) UpsertDevice(ctx context.Context, userID string, id device.Identity) (uuid.UUID, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || id.Fingerprint == "" {
		return uuid.Nil, Soft(ErrInvalidParams)
	}

	now := r.now().UTC()
	seen := Sighting{At: now, IP: id.IP, Location: id.Location}

	d, err := r.store.BumpDevice(ctx, userID, id.Fingerprint, seen)
	if err == nil {
		return d.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return uuid.Nil, Soft(fmt.Errorf("bump device: %w", err))
	}

	d = Device{
		ID:             uuid.New(),
		UserID:         userID,
		Fingerprint:    id.Fingerprint,
		Kind:           string(id.Kind),
		OSFamily:       id.OSFamily,
		OSVersion:      id.OSVersion,
		BrowserFamily:  id.BrowserFamily,
		BrowserVersion: id.BrowserVersion,
		Label:          id.Label,
		FirstSeenAt:    now,
		LastSeenAt:     now,
		FirstIP:        id.IP,
		LastIP:         id.IP,
		FirstLocation:  id.Location,
		LastLocation:   id.Location,
		LoginCount:     1,
	}
	err = r.store.InsertDevice(ctx, d)
	switch {
	case err == nil:
		return d.ID, nil
	case errors.Is(err, ErrConflict):
		// Lost the race to a concurrent first login.
		existing, err := r.store.BumpDevice(ctx, userID, id.Fingerprint, seen)
		if err != nil {
			return uuid.Nil, Soft(fmt.Errorf("bump device after conflict: %w", err))
		}
		return existing.ID, nil
	default:
		return uuid.Nil, Soft(fmt.Errorf("insert device: %w", err))
	}
}

// UpsertSession records the session p. The most recently seen live session of the
// same device is reused so a device keeps one row across logins.
// Errors are soft.
func (r *Registry) UpsertSession(ctx context.Context, p Params) error {
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.SID) == "" {
		return Soft(ErrInvalidParams)
	}
	now := r.now().UTC()

	if p.DeviceID != uuid.Nil {
		rec, err := r.store.LatestDeviceSession(ctx, p.UserID, p.DeviceID)
		switch {
		case err == nil:
			rec.SID = p.SID
			rec.LoginMethod = p.Method
			rec.LoginFlow = p.Flow
			rec.LastSeenAt = now
			if err := r.store.UpdateSession(ctx, rec); err != nil {
				return Soft(fmt.Errorf("update device session: %w", err))
			}
			return nil
		case !errors.Is(err, ErrNotFound):
			return Soft(fmt.Errorf("find device session: %w", err))
		}
	}

	rec := Record{
		ID:          uuid.New(),
		UserID:      p.UserID,
		SID:         p.SID,
		DeviceID:    p.DeviceID,
		LoginMethod: p.Method,
		LoginFlow:   p.Flow,
		IssuedAt:    now,
		LastSeenAt:  now,
	}
	err := r.store.InsertSession(ctx, rec)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrConflict) {
		return Soft(fmt.Errorf("insert session: %w", err))
	}

	existing, err := r.store.FindSession(ctx, p.UserID, p.SID)
	if err != nil {
		return Soft(fmt.Errorf("find session after conflict: %w", err))
	}
	existing.LoginMethod = p.Method
	existing.LoginFlow = p.Flow
	existing.LastSeenAt = now
	if err := r.store.UpdateSession(ctx, existing); err != nil {
		return Soft(fmt.Errorf("update session after conflict: %w", err))
	}
	return nil
}

// ValidateAndTouch checks the tracked state of ref and refreshes lastSeenAt when
// it is older than the touch window. A missing row is created when seedIfMissing
// is set. The only error returned is ErrRevoked; every store failure degrades to
// an active status.
func (r *Registry) ValidateAndTouch(ctx context.Context, ref Ref, seedIfMissing bool) (Status, error) {
	if ref.Legacy() {
		return Status{Active: true, Reason: ReasonLegacy}, nil
	}
	log := r.log.With(logger.UserID(ref.UserID), logger.SessionID(ref.SID))
	now := r.now().UTC()

	rec, err := r.store.FindSession(ctx, ref.UserID, ref.SID)
	switch {
	case errors.Is(err, ErrNotFound):
		if !seedIfMissing {
			return Status{Active: true, Reason: ReasonMissing}, nil
		}
		return r.seed(ctx, log, ref, now), nil
	case err != nil:
		return r.degrade(ctx, log, "find session", err), nil
	}

	if rec.Revoked() {
		return Status{Active: false, Reason: ReasonRevoked}, ErrRevoked
	}

	if now.Sub(rec.LastSeenAt) < r.touchWindow {
		return Status{Active: true, Reason: ReasonFresh}, nil
	}
	if err := r.store.TouchSession(ctx, rec.ID, now); err != nil {
		return r.degrade(ctx, log, "touch session", err), nil
	}
	return Status{Active: true, Reason: ReasonTouched}, nil
}

func (r *Registry) seed(ctx context.Context, log *slog.Logger, ref Ref, now time.Time) Status {
	deviceID := ref.DeviceID
	if deviceID == uuid.Nil && ref.Identify != nil {
		id, err := r.UpsertDevice(ctx, ref.UserID, ref.Identify())
		if err != nil {
			log.WarnContext(ctx, "device tracking failed", logger.Error(err))
		}
		deviceID = id
	}
	err := r.store.InsertSession(ctx, Record{
		ID:         uuid.New(),
		UserID:     ref.UserID,
		SID:        ref.SID,
		DeviceID:   deviceID,
		IssuedAt:   now,
		LastSeenAt: now,
	})
	if err != nil && !errors.Is(err, ErrConflict) {
		return r.degrade(ctx, log, "seed session", err)
	}
	return Status{Active: true, Reason: ReasonSeeded}
}

func (r *Registry) degrade(ctx context.Context, log *slog.Logger, op string, err error) Status {
	if errors.Is(err, ErrSchemaMissing) {
		log.DebugContext(ctx, "session tracking not provisioned", logger.Event(op))
		return Status{Active: true, Reason: ReasonSchemaMissing}
	}
	log.WarnContext(ctx, "session tracking failed", logger.Event(op), logger.Error(err))
	return Status{Active: true, Reason: ReasonStoreError}
}

// Revoke marks the session (userID, sid) revoked. Revoking an unknown session is
// not an error. Errors are soft.
func (r *Registry) Revoke(ctx context.Context, userID, sid, reason string) error {
	if userID == "" || sid == "" {
		return nil
	}
	err := r.store.RevokeSession(ctx, userID, sid, reason, r.now().UTC())
	if err == nil || errors.Is(err, ErrNotFound) {
		return nil
	}
	return Soft(fmt.Errorf("revoke session: %w", err))
}

// RevokeAll revokes every active session of userID and returns the count.
func (r *Registry) RevokeAll(ctx context.Context, userID, reason string) (int64, error) {
	if userID == "" {
		return 0, ErrInvalidParams
	}
	n, err := r.store.RevokeUserSessions(ctx, userID, reason, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return n, nil
}

// ListDevices returns the devices of userID.
func (r *Registry) ListDevices(ctx context.Context, userID string) ([]Device, error) {
	return r.store.ListDevices(ctx, userID)
}

// ListSessions returns the sessions of userID, revoked ones included.
func (r *Registry) ListSessions(ctx context.Context, userID string) ([]Record, error) {
	return r.store.ListSessions(ctx, userID)
}
