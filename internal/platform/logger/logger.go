package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the root structured logger. level accepts DEBUG, INFO, WARN,
// ERROR (case-insensitive); anything else falls back to INFO.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
