package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level and output format of a logger.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatJSON,
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
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

// Build creates a logger from cfg writing to w.
func Build(cfg Config, w io.Writer) Logger {
	return NewWriterLogger(w, strings.ToLower(cfg.Format), ParseLevel(cfg.Level))
}

// Configure replaces the default logger with one built from cfg writing to
// stderr.
func Configure(cfg Config) {
	SetDefault(Build(cfg, os.Stderr))
}
