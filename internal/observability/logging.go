package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the JSON logger used by every binary and installs it as default.
func NewLogger(level slog.Level, service string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("service", service)
	slog.SetDefault(logger)
	return logger
}
