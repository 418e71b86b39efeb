// Package logging installs the process-wide slog handler.
//
// LOG_LEVEL selects the level (debug, info, warn, error; default info).
// In production the handler drops colors so log collectors get plain text.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures the default logger from LOG_LEVEL.
func Setup(production bool) {
	SetupWithLevel(ParseLevel(os.Getenv("LOG_LEVEL")), production)
}

// SetupWithLevel configures the default logger at level.
func SetupWithLevel(level slog.Level, production bool) {
	opts := &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  level == slog.LevelDebug,
		NoColor:    production,
	}
	if production {
		opts.TimeFormat = time.RFC3339
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, opts)))
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
