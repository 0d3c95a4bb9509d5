package notify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Decorator wraps a Notifier with additional behavior.
type Decorator func(Notifier) Notifier

// WithRetry retries failed sends up to attempts times in total with exponential
// backoff between initialDelay and maxDelay. Each attempt carries its own
// idempotency key derived from the message's base key.
func WithRetry(n Notifier, attempts int, initialDelay, maxDelay time.Duration) Notifier {
	attempts = max(attempts, 1)
	return NotifierFunc(func(ctx context.Context, msg Message) error {
		if err := msg.Validate(); err != nil {
			return err
		}
		base := msg.IdempotencyKey
		if base == "" {
			base = uuid.NewString()
		}

		var lastErr error
		delay := initialDelay
		for attempt := 1; attempt <= attempts; attempt++ {
			if attempt > 1 {
				select {
				case <-ctx.Done():
					return fmt.Errorf("%w: %w", ErrFailedToSend, ctx.Err())
				case <-time.After(jitter(delay)):
				}
				delay = min(delay*2, maxDelay)
			}

			m := msg
			m.IdempotencyKey = base + "-" + strconv.Itoa(attempt)
			err := n.Send(ctx, m)
			if err == nil {
				return nil
			}
			lastErr = err
			if IsPermanent(err) {
				break
			}
		}

		return fmt.Errorf("%w after %d attempts: %w", ErrFailedToSend, attempts, lastErr)
	})
}

// WithTimeout bounds each Send call by timeout.
func WithTimeout(n Notifier, timeout time.Duration) Notifier {
	return NotifierFunc(func(ctx context.Context, msg Message) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return n.Send(ctx, msg)
	})
}

// Retry returns a Decorator applying WithRetry.
func Retry(attempts int, initialDelay, maxDelay time.Duration) Decorator {
	return func(n Notifier) Notifier { return WithRetry(n, attempts, initialDelay, maxDelay) }
}

// Timeout returns a Decorator applying WithTimeout.
func Timeout(timeout time.Duration) Decorator {
	return func(n Notifier) Notifier { return WithTimeout(n, timeout) }
}

// Decorate applies decorators left to right; the first one wraps innermost.
func Decorate(n Notifier, decorators ...Decorator) Notifier {
	for _, d := range decorators {
		n = d(n)
	}
	return n
}

// jitter spreads d over [d/2, d].
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(half+1)
}
