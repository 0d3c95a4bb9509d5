package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevNotifier writes each message to dir as a body file plus JSON metadata.
type DevNotifier struct {
	dir string
	now func() time.Time
}

// NewDevNotifier creates a DevNotifier writing into dir.
func NewDevNotifier(dir string) *DevNotifier {
	return &DevNotifier{dir: dir, now: time.Now}
}

type devMetadata struct {
	Timestamp      string  `json:"timestamp"`
	Channel        Channel `json:"channel"`
	To             string  `json:"to"`
	Subject        string  `json:"subject,omitempty"`
	Tag            string  `json:"tag,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// Send implements Notifier.
func (d *DevNotifier) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrFailedToSend, err)
	}

	now := d.now()
	id := msg.Tag
	if id == "" {
		id = msg.Subject
	}
	if id == "" {
		id = string(msg.Channel)
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000"), sanitizeFilename(id))

	ext := ".html"
	if msg.Channel == ChannelSMS {
		ext = ".txt"
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+ext), []byte(msg.Body), 0o644); err != nil {
		return fmt.Errorf("%w: write body: %w", ErrFailedToSend, err)
	}

	meta, err := json.MarshalIndent(devMetadata{
		Timestamp:      now.Format(time.RFC3339),
		Channel:        msg.Channel,
		To:             msg.To,
		Subject:        msg.Subject,
		Tag:            msg.Tag,
		IdempotencyKey: msg.IdempotencyKey,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %w", ErrFailedToSend, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %w", ErrFailedToSend, err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitizeFilename(s string) string {
	s = unsafeFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	s = strings.Trim(s, "_")
	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" {
		return "message"
	}
	return s
}
