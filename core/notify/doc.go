// Package notify delivers one-time codes and security notices through an external
// provider such as Postmark.
//
// A Notifier sends one Message. Decorators add the delivery guarantees expected of
// calls made from the login flow:
//
//	n := notify.Decorate(
//		postmarkClient,
//		notify.Timeout(5*time.Second),
//		notify.Retry(3, 200*time.Millisecond, 2*time.Second),
//	)
//
// Retry gives every message a base idempotency key (a UUID unless one is set) and
// derives a distinct key per attempt as "<base>-<attempt>". Delays grow
// exponentially with jitter and stop early on context cancellation or on errors
// marked with Permanent.
//
// DevNotifier writes messages to disk instead of sending them.
package notify
