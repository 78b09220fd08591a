package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON structured logger writing to stdout. The level defaults
// to info; set TAKEDOWN_LOG_LEVEL=debug for verbose output.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("TAKEDOWN_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
