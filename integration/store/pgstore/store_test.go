package pgstore_test

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/passkey"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/core/trust"
	"github.com/dmitrymomot/gatekeeper/integration/database/pg"
	"github.com/dmitrymomot/gatekeeper/integration/store/pgstore"
)

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(pgstore.Migrations(), ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := fs.ReadFile(pgstore.Migrations(), entries[0].Name())
	require.NoError(t, err)
	for _, table := range []string{"user_devices", "user_sessions", "trusted_devices", "passkey_credentials"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.True(t, strings.Contains(string(body), "-- +goose Down"))
}

// connect returns a migrated store when PG_TEST_URL points at a disposable database.
func connect(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("PG_TEST_URL")
	if dsn == "" {
		t.Skip("PG_TEST_URL not set")
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: dsn, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pg.Migrate(ctx, pool, pgstore.Migrations(), nil))
	return pgstore.New(pool)
}

func TestStoreIntegration(t *testing.T) {
	store := connect(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	userID := "u-" + uuid.NewString()

	t.Run("device upsert race resolves through conflict", func(t *testing.T) {
		d := session.Device{ID: uuid.New(), UserID: userID, Fingerprint: "fp", FirstSeenAt: now, LastSeenAt: now, LoginCount: 1}
		require.NoError(t, store.InsertDevice(ctx, d))

		d.ID = uuid.New()
		err := store.InsertDevice(ctx, d)
		assert.ErrorIs(t, err, session.ErrConflict)

		bumped, err := store.BumpDevice(ctx, userID, "fp", session.Sighting{At: now.Add(time.Minute), IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, 2, bumped.LoginCount)
		assert.Equal(t, "10.0.0.1", bumped.LastIP)

		_, err = store.BumpDevice(ctx, userID, "missing", session.Sighting{At: now})
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("session lifecycle", func(t *testing.T) {
		rec := session.Record{ID: uuid.New(), UserID: userID, SID: "sid-1", LoginMethod: "password", IssuedAt: now, LastSeenAt: now}
		require.NoError(t, store.InsertSession(ctx, rec))

		got, err := store.FindSession(ctx, userID, "sid-1")
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got.DeviceID)

		require.NoError(t, store.RevokeSession(ctx, userID, "sid-1", "logout", now))
		got, err = store.FindSession(ctx, userID, "sid-1")
		require.NoError(t, err)
		assert.True(t, got.Revoked())
		assert.Equal(t, "logout", got.RevokedReason)

		assert.ErrorIs(t, store.RevokeSession(ctx, userID, "nope", "logout", now), session.ErrNotFound)
	})

	t.Run("trusted devices", func(t *testing.T) {
		email := userID + "@example.com"
		rec := trust.Record{ID: uuid.New(), Email: email, TokenHash: "h", CreatedAt: now, LastUsedAt: now, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, store.InsertTrusted(ctx, rec))

		_, err := store.FindTrusted(ctx, email, "other")
		assert.ErrorIs(t, err, trust.ErrNotFound)

		n, err := store.RevokeAllTrusted(ctx, email, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("passkey counters", func(t *testing.T) {
		require.NoError(t, store.AddCredential(ctx, passkey.Credential{UserID: userID, ID: "cred", PublicKey: []byte{1}, SignCount: 4}))
		require.NoError(t, store.UpdateCounter(ctx, userID, "cred", 9, now))

		creds, err := store.ListCredentials(ctx, userID)
		require.NoError(t, err)
		require.Len(t, creds, 1)
		assert.EqualValues(t, 9, creds[0].SignCount)

		assert.ErrorIs(t, store.UpdateCounter(ctx, userID, "missing", 1, now), passkey.ErrUnknownCredential)
	})
}
