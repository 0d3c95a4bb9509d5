package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
)

func discardLogger() *slog.Logger { return logger.New(logger.WithOutput(io.Discard)) }

func TestProviderAccounts(t *testing.T) {
	t.Parallel()

	t.Run("maps a verified profile to a login", func(t *testing.T) {
		t.Parallel()
		l, stepUp, err := providerAccounts{stepUp: true}.ResolveOAuth(context.Background(), "google",
			oauth.Profile{Subject: "123", Email: "jane@example.com", EmailVerified: true, Name: "Jane"})
		require.NoError(t, err)
		assert.True(t, stepUp)
		assert.Equal(t, "google:123", l.UserID)
		assert.Equal(t, "google", l.Flow)
		assert.Equal(t, "oauth", l.Method)
	})

	t.Run("refuses unverified email", func(t *testing.T) {
		t.Parallel()
		_, _, err := providerAccounts{}.ResolveOAuth(context.Background(), "oidc",
			oauth.Profile{Subject: "1", Email: "jane@example.com"})
		assert.ErrorIs(t, err, errUnverifiedEmail)
	})
}

func TestOpenStores(t *testing.T) {
	t.Run("memory storage needs no external services", func(t *testing.T) {
		t.Setenv("REDIS_URL", "")
		b, release, err := openStores(context.Background(), appConfig{Storage: "memory"}, discardLogger())
		require.NoError(t, err)
		defer release()
		assert.NotNil(t, b.Sessions)
		assert.NotNil(t, b.Passkeys)
		assert.NotNil(t, b.guard)
		assert.NotNil(t, b.limiter)
		assert.Empty(t, b.checks)
	})

	t.Run("rejects an unknown backend", func(t *testing.T) {
		_, release, err := openStores(context.Background(), appConfig{Storage: "mysql"}, discardLogger())
		defer release()
		assert.Error(t, err)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	assert.True(t, securityHeaders(false).IsDevelopment)
	assert.False(t, securityHeaders(true).IsDevelopment)
}

func TestTrustProxies(t *testing.T) {
	t.Parallel()

	t.Run("keeps the defaults when none are configured", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, trustProxies(nil))
	})

	t.Run("refuses malformed entries", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, trustProxies([]string{"10.0.0.0/8", "lb.internal"}), clientip.ErrInvalidProxy)
	})
}
