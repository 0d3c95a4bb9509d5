package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Device is a persisted device row, unique per (UserID, Fingerprint).
type Device struct {
	ID             uuid.UUID
	UserID         string
	Fingerprint    string
	Kind           string
	OSFamily       string
	OSVersion      string
	BrowserFamily  string
	BrowserVersion string
	Label          string
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
	FirstIP        string
	LastIP         string
	FirstLocation  string
	LastLocation   string
	LoginCount     int
}

// Sighting is what a repeat login refreshes on a device row.
type Sighting struct {
	At       time.Time
	IP       string
	Location string
}

// Record is a persisted session row, unique per (UserID, SID).
type Record struct {
	ID            uuid.UUID
	UserID        string
	SID           string
	DeviceID      uuid.UUID
	LoginMethod   string
	LoginFlow     string
	IssuedAt      time.Time
	LastSeenAt    time.Time
	RevokedAt     *time.Time
	RevokedReason string
}

// Revoked reports whether the record was revoked.
func (r Record) Revoked() bool { return r.RevokedAt != nil }

// Store is the persistence contract of the registry. Implementations must report
// ErrNotFound for missing rows, ErrConflict for unique violations and
// ErrSchemaMissing when the backing tables do not exist.
type Store interface {
	// BumpDevice atomically increments LoginCount and applies s to the device
	// row for (userID, fingerprint), returning the updated row.
	BumpDevice(ctx context.Context, userID, fingerprint string, s Sighting) (Device, error)
	InsertDevice(ctx context.Context, d Device) error
	ListDevices(ctx context.Context, userID string) ([]Device, error)

	FindSession(ctx context.Context, userID, sid string) (Record, error)
	// LatestDeviceSession returns the most recently seen non-revoked session of a device.
	LatestDeviceSession(ctx context.Context, userID string, deviceID uuid.UUID) (Record, error)
	InsertSession(ctx context.Context, rec Record) error
	// UpdateSession rewrites SID, LoginMethod, LoginFlow and LastSeenAt of the row with rec.ID.
	UpdateSession(ctx context.Context, rec Record) error
	TouchSession(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeSession(ctx context.Context, userID, sid, reason string, at time.Time) error
	// RevokeUserSessions revokes every active session of userID and returns how many were revoked.
	RevokeUserSessions(ctx context.Context, userID, reason string, at time.Time) (int64, error)
	ListSessions(ctx context.Context, userID string) ([]Record, error)
}
