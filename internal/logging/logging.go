// Package logging configures structured logging for jolt.
//
// Logs are JSON lines on stderr carrying the module name and version. The level comes
// from the explicit argument, falling back to LOG_LEVEL and then to info. Debug level
// adds source locations.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
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

// New returns a JSON logger writing to w.
func New(w io.Writer, module, version, level string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	lvl := ParseLevel(level)

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})

	return slog.New(handler).With(
		slog.String("module", module),
		slog.String("version", version),
	)
}

// SetDefault installs a stderr logger as the slog default.
func SetDefault(module, version, level string) {
	slog.SetDefault(New(os.Stderr, module, version, level))
}
