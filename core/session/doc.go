// Package session tracks issued sessions and the devices they were issued to.
//
// The session cookie itself (see core/sessiontransport) is the credential; this
// package only keeps the server-side record of it. Records power device lists and
// revocation, and nothing here is required for a user to log in.
//
// # Registry
//
// Registry wraps a Store and implements the tracking lifecycle:
//
//	reg := session.NewRegistry(store, session.WithLogger(log))
//
//	deviceID, err := reg.UpsertDevice(ctx, userID, identity)
//	err = reg.UpsertSession(ctx, session.Params{UserID: userID, SID: sid, DeviceID: deviceID})
//
//	status, err := reg.ValidateAndTouch(ctx, session.Ref{UserID: userID, Email: email, SID: sid}, false)
//	if errors.Is(err, session.ErrRevoked) {
//		// the session was revoked and must be cleared
//	}
//
// Devices are keyed by (userID, fingerprint) and sessions by (userID, sid). Concurrent
// first logins are resolved by the store's unique constraints: an insert that hits
// ErrConflict is retried as an update, so no in-process locking is needed.
//
// # Soft and Fatal Errors
//
// Write failures on the tracking layer are returned wrapped with Soft. Callers log
// them and carry on. ValidateAndTouch never reports store failures: a missing
// schema or an unavailable store degrades to an active status with a reason. Only
// ErrRevoked is fatal.
//
// # Touch Window
//
// lastSeenAt is written only when the stored value is older than the touch window
// (default 120s, never below 30s) to bound write volume.
package session
