package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// SetupLogger opens the log file named by cfg and returns a JSON logger
// writing to it. Closing the returned Closer closes the file.
func SetupLogger(cfg *LoggingConfig) (*slog.Logger, io.Closer, error) {
	path, err := ExpandPath(cfg.File)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := ParseLogLevel(cfg.Level)
	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(handler).With("pid", os.Getpid()), f, nil
}

// ConsoleLogger returns a human-readable logger for interactive use.
// The writer defaults to os.Stderr.
func ConsoleLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.Level(ParseLogLevel(level)),
		Prefix:          appName,
	})
	return slog.New(handler)
}

// ParseLogLevel accepts slog level names in any case, plus "warning".
// Anything unknown is INFO.
func ParseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
