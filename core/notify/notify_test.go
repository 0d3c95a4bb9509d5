package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/notify"
)

type flaky struct {
	mu       sync.Mutex
	failures int
	err      error
	keys     []string
}

func (f *flaky) Send(ctx context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, msg.IdempotencyKey)
	if len(f.keys) <= f.failures {
		return f.err
	}
	return nil
}

func codeEmail() notify.Message {
	return notify.Message{Channel: notify.ChannelEmail, To: "jane@example.com", Subject: "Your code", Body: "<p>123456</p>", Tag: "login-code"}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after transient failures with per-attempt keys", func(t *testing.T) {
		t.Parallel()
		inner := &flaky{failures: 2, err: errors.New("503")}
		n := notify.WithRetry(inner, 3, time.Millisecond, 2*time.Millisecond)

		msg := codeEmail()
		msg.IdempotencyKey = "abc"
		require.NoError(t, n.Send(context.Background(), msg))
		assert.Equal(t, []string{"abc-1", "abc-2", "abc-3"}, inner.keys)
	})

	t.Run("generates a base key when none is set", func(t *testing.T) {
		t.Parallel()
		inner := &flaky{failures: 1, err: errors.New("503")}
		n := notify.WithRetry(inner, 2, time.Millisecond, time.Millisecond)

		require.NoError(t, n.Send(context.Background(), codeEmail()))
		require.Len(t, inner.keys, 2)
		assert.True(t, strings.HasSuffix(inner.keys[0], "-1"))
		assert.Equal(t, strings.TrimSuffix(inner.keys[0], "-1"), strings.TrimSuffix(inner.keys[1], "-2"))
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("503")
		inner := &flaky{failures: 10, err: cause}
		err := notify.WithRetry(inner, 3, time.Millisecond, time.Millisecond).Send(context.Background(), codeEmail())

		assert.ErrorIs(t, err, notify.ErrFailedToSend)
		assert.ErrorIs(t, err, cause)
		assert.Len(t, inner.keys, 3)
	})

	t.Run("permanent errors stop retrying", func(t *testing.T) {
		t.Parallel()
		inner := &flaky{failures: 10, err: notify.Permanent(errors.New("invalid recipient"))}
		err := notify.WithRetry(inner, 5, time.Millisecond, time.Millisecond).Send(context.Background(), codeEmail())

		require.Error(t, err)
		assert.Len(t, inner.keys, 1)
	})

	t.Run("context cancellation aborts the wait", func(t *testing.T) {
		t.Parallel()
		inner := &flaky{failures: 10, err: errors.New("503")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := notify.WithRetry(inner, 5, time.Hour, time.Hour).Send(ctx, codeEmail())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, inner.keys, 1)
	})

	t.Run("invalid messages are not sent", func(t *testing.T) {
		t.Parallel()
		inner := &flaky{}
		err := notify.WithRetry(inner, 3, time.Millisecond, time.Millisecond).Send(context.Background(), notify.Message{Channel: notify.ChannelSMS})
		assert.ErrorIs(t, err, notify.ErrInvalidMessage)
		assert.Empty(t, inner.keys)
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := notify.NotifierFunc(func(ctx context.Context, _ notify.Message) error {
		<-ctx.Done()
		return ctx.Err()
	})
	n := notify.Decorate(slow, notify.Timeout(5*time.Millisecond), notify.Retry(2, time.Millisecond, time.Millisecond))

	err := n.Send(context.Background(), codeEmail())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, codeEmail().Validate())
	assert.NoError(t, notify.Message{Channel: notify.ChannelSMS, To: "+15550100", Body: "123456"}.Validate())

	noSubject := codeEmail()
	noSubject.Subject = ""
	assert.ErrorIs(t, noSubject.Validate(), notify.ErrInvalidMessage)
	assert.ErrorIs(t, notify.Message{Channel: "pigeon", To: "x", Body: "y"}.Validate(), notify.ErrInvalidMessage)
}

func TestDevNotifier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	msg := codeEmail()
	msg.IdempotencyKey = "k-1"
	require.NoError(t, notify.NewDevNotifier(dir).Send(context.Background(), msg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var metaFile, bodyFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".json":
			metaFile = e.Name()
		case ".html":
			bodyFile = e.Name()
		}
	}
	require.NotEmpty(t, metaFile)
	require.NotEmpty(t, bodyFile)
	assert.Contains(t, bodyFile, "login-code")

	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "jane@example.com", meta["to"])
	assert.Equal(t, "k-1", meta["idempotency_key"])
}
