// Package logging holds the shared slog setup for the server, the
// consumer, and the driver agent.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the JSON logger every hande binary starts with.
// The level string comes straight from LOG_LEVEL; unknown values
// fall back to info.
func NewLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     levelFromString(level),
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func levelFromString(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
