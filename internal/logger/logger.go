// Package logger configures the process-wide slog logger for the daemons
// in cmd/. Console output is always on; an optional rotated file can be
// added for long-running collectors.
package logger

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and the optional log file.
type Config struct {
	Level      string `yaml:"level"`       // DEBUG, INFO, WARN, ERROR
	Format     string `yaml:"format"`      // text or json
	File       string `yaml:"file"`        // empty disables file output
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotation threshold
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Initialize builds a logger from the config and installs it as the slog
// default.
func Initialize(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	out := os.Stdout
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 50),
			MaxBackups: defaultInt(cfg.MaxBackups, 3),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
		}
		if cfg.Format == "json" {
			handler = slog.NewJSONHandler(rotated, opts)
		} else {
			handler = slog.NewTextHandler(rotated, opts)
		}
	}

	lg := slog.New(handler)
	slog.SetDefault(lg)
	return lg
}

// ParseLevel converts a config string into a slog.Level, defaulting to
// INFO.
func ParseLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
