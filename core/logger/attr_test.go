package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/logger"
)

func TestGroup(t *testing.T) {
	t.Parallel()
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "0", g[0].Key)
	assert.Equal(t, "2", g[1].Key)

	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
}

func TestError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	t.Run("empty identifiers produce empty attrs", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.UserID(""))
		assert.Equal(t, slog.Attr{}, logger.SessionID(""))
		assert.Equal(t, slog.Attr{}, logger.Reason(""))
		assert.Equal(t, slog.Attr{}, logger.Email(""))
	})

	t.Run("populated identifiers keep their key", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "user_id", logger.UserID("u1").Key)
		assert.Equal(t, "sid", logger.SessionID("s1").Key)
		assert.Equal(t, "ticket_type", logger.TicketType("exchange").Key)
	})
}

func TestEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "j***@example.com", logger.Email("jane.doe@example.com").Value.String())
	assert.Equal(t, "***", logger.Email("broken").Value.String())
}
