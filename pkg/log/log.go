// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Setup installs a text handler on stderr at the named level as the default
// logger. Unknown level names fall back to info.
func Setup(logLevel string) {
	level, ok := levels[logLevel]
	if !ok {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger scoped to the named module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
