// Package logger builds the slog logger shared by the commands
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level and output format
type Config struct {
	Level  string `mapstructure:"log_level"`  // debug, info, warn, error
	Format string `mapstructure:"log_format"` // text or json
}

// New creates a logger writing to stderr. cfg may be nil for defaults.
func New(cfg *Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	format := "text"
	if cfg != nil {
		level = ParseLevel(cfg.Level)
		if cfg.Format != "" {
			format = strings.ToLower(cfg.Format)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
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
