package postmark

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/gatekeeper/core/notify"
)

// IdempotencyHeader carries the per-attempt key on every message.
const IdempotencyHeader = "X-Idempotency-Key"

// Postmark API error codes that will not succeed on retry.
var permanentCodes = map[int64]bool{
	300: true, // invalid email request
	406: true, // inactive recipient
	422: true, // invalid JSON
}

// Client sends email notifications through Postmark.
type Client struct {
	client *postmark.Client
	config Config
}

var _ notify.Notifier = (*Client)(nil)

// Option configures a Client.
type Option func(*postmark.Client)

// WithBaseURL points the client at another API endpoint.
func WithBaseURL(url string) Option {
	return func(c *postmark.Client) { c.BaseURL = url }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *postmark.Client) { c.HTTPClient = hc }
}

// New creates a Postmark-backed notifier.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", notify.ErrInvalidConfig)
	}
	if !isValidEmail(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", notify.ErrInvalidConfig)
	}
	if !isValidEmail(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", notify.ErrInvalidConfig)
	}

	pc := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	for _, opt := range opts {
		opt(pc)
	}
	return &Client{client: pc, config: cfg}, nil
}

// MustNew is like New but panics on invalid configuration.
func MustNew(cfg Config, opts ...Option) *Client {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Send implements notify.Notifier. Only email messages are accepted.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if err := msg.Validate(); err != nil {
		return notify.Permanent(err)
	}
	if msg.Channel != notify.ChannelEmail {
		return notify.Permanent(fmt.Errorf("%w: postmark only sends email", notify.ErrInvalidMessage))
	}

	email := postmark.Email{
		From:          c.config.SenderEmail,
		ReplyTo:       c.config.SupportEmail,
		To:            msg.To,
		Subject:       msg.Subject,
		Tag:           msg.Tag,
		HTMLBody:      msg.Body,
		MessageStream: c.config.MessageStream,
	}
	if msg.IdempotencyKey != "" {
		email.Headers = []postmark.Header{{Name: IdempotencyHeader, Value: msg.IdempotencyKey}}
	}

	resp, err := c.client.SendEmail(ctx, email)
	if err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		err := errors.Join(
			notify.ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
		if permanentCodes[int64(resp.ErrorCode)] {
			return notify.Permanent(err)
		}
		return err
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
