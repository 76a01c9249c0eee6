// Package logging provides structured logging configuration using log/slog.
//
// This package integrates with chi's RequestID middleware to propagate
// request IDs through structured log entries, enabling request tracing
// across the entire request lifecycle. Output goes to stdout and, when a
// file is configured, to a size-rotated log file as well.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	Level  string // "debug", "info", "warn", "error" (default: "info")
	Format string // "text", "json" (default: "text")

	// File enables a rotated log file next to stdout. Empty disables it.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup configures the global slog logger. The returned closer releases the
// log file, if any; it is safe to call when no file is configured.
//
// Use "json" format in production for machine parsing (ELK, CloudWatch, etc.)
// Use "text" format in development for human readability.
func Setup(opts Options) io.Closer {
	w, closer := output(os.Stdout, opts)
	slog.SetDefault(slog.New(newHandler(w, opts)))
	return closer
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	}
	if strings.ToLower(opts.Format) == "json" {
		return slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.NewTextHandler(w, handlerOpts)
}

// output returns the writer for log records: stdout alone, or stdout plus
// the rotated file.
func output(stdout io.Writer, opts Options) (io.Writer, io.Closer) {
	if opts.File == "" {
		return stdout, nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   opts.Compress,
	}
	return io.MultiWriter(stdout, file), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// FromContext returns a logger enriched with request context.
//
// When called with a request context that contains a chi RequestID,
// the returned logger automatically includes request_id in all log entries.
// This enables correlation of all log entries for a single request.
//
// Usage:
//
//	func handleRequest(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("loading rows", "table", table)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	gridLogger := logging.WithFields(ctx,
//	    "session", sessionID,
//	    "table", table,
//	)
//	gridLogger.Info("row deleted", "id", id)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
