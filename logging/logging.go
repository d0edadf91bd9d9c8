// Package logging builds the structured logger shared across vopono's
// commands. Grounded on cli/cli.go's setupLogging: a slog.TextHandler
// aimed at stderr by default, or a per-invocation timestamped file when a
// log directory is configured.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config carries the subset of CLI flags Setup needs, kept
// independent of the serpent command struct so this package has no
// dependency on config.
type Config struct {
	Level  string
	LogDir string
}

// Setup creates a slog.Logger at the requested level, writing to LogDir
// if set or stderr otherwise.
func Setup(cfg Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)

	target := os.Stderr

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("could not set up log dir %s: %w", cfg.LogDir, err)
		}

		name := fmt.Sprintf("vopono-%s-%d.log", time.Now().Format("2006-01-02_15-04-05"), os.Getpid())
		file, err := os.Create(filepath.Join(cfg.LogDir, name))
		if err != nil {
			return nil, fmt.Errorf("could not create log file %s: %w", name, err)
		}
		target = file
	}

	handler := slog.NewTextHandler(target, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}
