// Package postmark delivers email notifications through Postmark's transactional API.
//
// Client implements notify.Notifier for notify.ChannelEmail messages:
//
//	pm, err := postmark.New(postmark.Config{
//		ServerToken:  os.Getenv("POSTMARK_SERVER_TOKEN"),
//		SenderEmail:  "noreply@example.com",
//		SupportEmail: "support@example.com",
//	})
//	n := notify.Decorate(pm, notify.Timeout(5*time.Second), notify.Retry(3, 200*time.Millisecond, 2*time.Second))
//
// Reply-To is always the support address. The idempotency key of each attempt is
// sent as the X-Idempotency-Key header. Postmark errors that cannot succeed on a
// retry (invalid request, inactive recipient) are returned as notify.Permanent so
// the retry decorator stops early.
package postmark
