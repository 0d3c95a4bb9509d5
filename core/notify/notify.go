package notify

import (
	"context"
	"fmt"
	"strings"
)

// Channel is the delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is a single notification.
type Message struct {
	Channel Channel
	To      string
	Subject string
	// Body is HTML for email and plain text for SMS.
	Body           string
	Tag            string
	IdempotencyKey string
}

// Validate checks the fields required by Channel.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	switch m.Channel {
	case ChannelEmail:
		if strings.TrimSpace(m.Subject) == "" {
			return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
		}
	case ChannelSMS:
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidMessage, m.Channel)
	}
	return nil
}

// Notifier sends messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
