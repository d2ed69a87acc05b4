package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. format "pretty" selects the colored
// single-line handler, anything else JSON on stdout.
func New(service, level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, level, format)
}

func NewWithWriter(out io.Writer, service, level, format string) *slog.Logger {
	opts := slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty", "text", "console":
		handler = NewPrettyHandler(out, PrettyHandlerOptions{SlogOpts: opts})
	default:
		handler = slog.NewJSONHandler(out, &opts)
	}
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
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
