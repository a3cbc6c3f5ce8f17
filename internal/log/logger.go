package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Logger is the interface for QuantaEval logging
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	// WithContext returns a logger tagged with the run ID carried by ctx, or
	// the receiver when ctx has none.
	WithContext(ctx context.Context) Logger
	Enabled(level slog.Level) bool
}

// logger wraps slog.Logger
type logger struct {
	slog *slog.Logger
}

// Output goes to stderr; stdout carries results.
var defaultLogger atomic.Pointer[Logger]

func init() {
	l := NewWriterLogger(os.Stderr, FormatJSON, slog.LevelInfo)
	defaultLogger.Store(&l)
}

// SetDefault sets the default logger
func SetDefault(l Logger) {
	defaultLogger.Store(&l)
}

// Default returns the default logger
func Default() Logger {
	return *defaultLogger.Load()
}

// New creates a new logger with the given handler
func New(handler slog.Handler) Logger {
	return &logger{slog: slog.New(handler)}
}

// Output formats accepted by NewWriterLogger.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// NewWriterLogger creates a logger writing to w. Any format other than
// FormatText produces JSON.
func NewWriterLogger(w io.Writer, format string, level slog.Level) Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}
	var handler slog.Handler
	if format == FormatText {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return New(handler)
}

// Discard returns a logger that drops every record. Used in tests.
func Discard() Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func (l *logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

func (l *logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(args...)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	if id := RunID(ctx); id != "" {
		return l.With(String(RunIDKey, id))
	}
	return l
}

// Enabled reports whether records at level are emitted. Callers use it to
// skip building expensive debug attributes such as evaluator descriptions.
func (l *logger) Enabled(level slog.Level) bool {
	return l.slog.Enabled(context.Background(), level)
}

// RunIDKey is the attribute key of the run ID.
const RunIDKey = "run_id"

type runIDKey struct{}

// WithRunID returns a context carrying the ID of one evaluation run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Helper functions for structured logging

// String returns a string attribute
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an int attribute
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Int64 returns an int64 attribute
func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

// Bool returns a bool attribute
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns a duration attribute
func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

// Elapsed returns the time since start under the "elapsed" key.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Any returns an any attribute
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Err returns an error attribute under the "error" key
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

// Group returns a group attribute
func Group(key string, attrs ...slog.Attr) slog.Attr {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return slog.Group(key, args...)
}
