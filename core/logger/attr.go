package logger

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an attribute for event names.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Reason creates an attribute explaining an outcome.
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

func nonEmpty(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}

// UserID creates an attribute for user identifiers.
func UserID(id string) slog.Attr { return nonEmpty("user_id", id) }

// SessionID creates an attribute for session identifiers.
func SessionID(sid string) slog.Attr { return nonEmpty("sid", sid) }

// DeviceID creates an attribute for device record identifiers.
func DeviceID(id string) slog.Attr { return nonEmpty("device_id", id) }

// TicketType creates an attribute for ticket discriminators.
func TicketType(typ string) slog.Attr { return nonEmpty("ticket_type", typ) }

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr { return slog.String("method", method) }

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr { return slog.String("path", path) }

// StatusCode creates an attribute for HTTP status codes.
func StatusCode(code int) slog.Attr { return slog.Int("status_code", code) }

// ClientIP creates an attribute for client IP addresses.
func ClientIP(ip string) slog.Attr { return nonEmpty("client_ip", ip) }

// UserAgent creates an attribute for user agent strings.
func UserAgent(ua string) slog.Attr { return nonEmpty("user_agent", ua) }

// Email creates a masked email attribute: "jane.doe@example.com" -> "j***@example.com".
func Email(email string) slog.Attr {
	if email == "" {
		return slog.Attr{}
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return slog.String("email", "***")
	}
	return slog.String("email", local[:1]+"***@"+domain)
}

// RequestID returns the request correlation id.
func RequestID(id string) slog.Attr { return nonEmpty("request_id", id) }
