package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a text logger on w. DEBUG=true forces debug level and adds
// source locations.
func New(level string, w io.Writer) *slog.Logger {
	debug := os.Getenv("DEBUG") == "true"

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: debug,
	}))
}
