// Package logger provides structured logging built on the standard slog package:
// a small factory with environment presets, a context-aware handler decorator and
// nil-safe attribute helpers for authentication events.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithProduction("gatekeeper"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//
//	log.InfoContext(ctx, "session issued",
//		logger.Component("auth"),
//		logger.UserID(userID),
//		logger.SessionID(sid),
//	)
//
// # Environment Configurations
//
//	// Development: text format, debug level, stdout
//	devLogger := logger.New(logger.WithDevelopment("gatekeeper"))
//
//	// Production: JSON format, info level, stdout
//	prodLogger := logger.New(logger.WithProduction("gatekeeper"))
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for nil or empty values, so calls like
// log.Warn("msg", logger.Error(err)) need no nil checks. Email addresses are
// masked by Email before they reach the log sink.
package logger
