// Package log configures the process-wide structured logger shared by the
// api, worker and scheduler binaries.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on the default logger at the given level.
// Unknown levels fall back to info; run processing must not die on a typo
// in LOG_LEVEL.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule derives a logger tagged with the subsystem name, e.g.
// "engine" or "scheduler", so mixed output from one process stays
// filterable.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
