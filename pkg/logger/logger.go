// Package logger builds the structured zerolog logger shared by every component.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error (defaults to info)
	Pretty bool   // human-readable console output instead of JSON
}

type contextKey string

const loggerKey contextKey = "logger"

// New creates a root logger writing to stdout.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter creates a root logger writing to w.
// Pretty mode wraps w in a console writer.
func NewWithWriter(w io.Writer, cfg Config) zerolog.Logger {
	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// WithContext stores the logger in ctx.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return log
	}
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
