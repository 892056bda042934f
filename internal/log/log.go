// Package log builds the slog loggers used across darsbot.
//
// Loggers are plain *slog.Logger values passed in through constructors, never
// package-level globals: components add their own context with With() and
// tests swap in a silent logger. Config maps one-to-one onto the fields the
// server exposes in its configuration file (level, format, source info).
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is an alias for *slog.Logger so constructors can name the
// dependency without inventing a wrapper interface.
type Logger = *slog.Logger

// Config selects level, output format, and source annotation.
type Config struct {
	// Level is the minimum level emitted. Zero value means slog.LevelInfo.
	Level slog.Level

	// JSON switches output from logfmt-style text to JSON, one object per line.
	JSON bool

	// AddSource appends file:line of the call site to every record.
	AddSource bool
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// slog level. Unknown strings fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New creates a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Tests point this at a buffer
// to assert on output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop returns a logger that discards everything. Test-only: production
// callers should always see their logs.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
