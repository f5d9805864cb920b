package slogutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// silent is above every standard level.
const silent = slog.Level(100)

// NewLogger creates a logger using LineHandler.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger creates a logger that drops everything. Used by tests.
func NewDiscardLogger() *slog.Logger {
	return NewLogger(io.Discard, silent)
}

// LevelFromString converts debug, info, warn or error (any case) to a level.
// Anything else maps to info.
func LevelFromString(s string) slog.Level {
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

// LevelFromVerbosity maps -v counts and -q to a level. ok is false when
// neither flag was given so the configured level applies.
func LevelFromVerbosity(verbosity int, quiet bool) (level slog.Level, ok bool) {
	switch {
	case quiet:
		return silent, true
	case verbosity == 0:
		return slog.LevelInfo, false
	case verbosity == 1:
		return slog.LevelInfo, true
	default:
		return slog.LevelDebug, true
	}
}

// Options controls Setup.
type Options struct {
	Level      string
	File       string
	MaxSize    string
	MaxBackups int
	Verbosity  int
	Quiet      bool
}

// Setup builds the process logger: console output on stderr and, when
// opts.File is set, a rotating log file receiving the same records.
// The returned closer must be closed on exit.
func Setup(stderr io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level := LevelFromString(opts.Level)
	if l, ok := LevelFromVerbosity(opts.Verbosity, opts.Quiet); ok {
		level = l
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	console := NewLineHandler(stderr, &slog.HandlerOptions{Level: level})
	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(opts.File, ParseSize(opts.MaxSize), opts.MaxBackups)
	if err != nil {
		return nil, nil, err
	}
	// The file always records at least info so quiet runs leave a trail.
	fileLevel := level
	if fileLevel > slog.LevelInfo {
		fileLevel = slog.LevelInfo
	}
	file := NewLineHandler(rf, &slog.HandlerOptions{Level: fileLevel})
	return slog.New(NewTeeHandler(console, file)), rf, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// TeeHandler fans records out to several handlers.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler creates a handler that writes to all provided handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: next}
}

func (t *TeeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: next}
}
