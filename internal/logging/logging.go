package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init creates and sets the package-level default slog logger and
// returns the LevelVar controlling its verbosity. Daemon mode uses a
// JSONHandler, interactive commands a TextHandler; both write to stderr
// so stdout stays free for command output.
func Init(daemon bool, level slog.Level) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level)

	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	if daemon {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return lv
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to
// slog.Level. Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
