// Package logging builds the slog logger used by the dockit command.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/syntrixbase/dockit/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	mainLogName  = "dockit.log"
	errorLogName = "errors.log"
)

// Logger is a *slog.Logger that owns its log files.
type Logger struct {
	*slog.Logger
	files []*lumberjack.Logger
}

// New builds a logger from cfg. Console output goes to stderr so command
// output on stdout stays machine readable. File output writes every enabled
// level to dockit.log and warnings and errors to errors.log as well.
func New(cfg config.LoggingConfig) (*Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.LoggingConfig, console io.Writer) (*Logger, error) {
	l := &Logger{}
	var handlers []slog.Handler

	if cfg.Console.Enabled {
		handlers = append(handlers, createHandler(console, cfg.Console.Format, parseLevel(cfg.Console.Level)))
	}

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		format := cfg.File.Format
		if format == "console" {
			format = "text"
		}

		mainFile := l.open(cfg, mainLogName)
		handlers = append(handlers, createHandler(mainFile, format, parseLevel(cfg.File.Level)))

		errorFile := l.open(cfg, errorLogName)
		handlers = append(handlers, NewLevelFilter(createHandler(errorFile, format, slog.LevelWarn), slog.LevelWarn))
	}

	switch len(handlers) {
	case 0:
		l.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	case 1:
		l.Logger = slog.New(handlers[0])
	default:
		l.Logger = slog.New(NewMultiHandler(handlers...))
	}
	return l, nil
}

func (l *Logger) open(cfg config.LoggingConfig, name string) *lumberjack.Logger {
	f := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.Rotation.MaxSize,
		MaxBackups: cfg.Rotation.MaxBackups,
		MaxAge:     cfg.Rotation.MaxAge,
		Compress:   cfg.Rotation.Compress,
	}
	l.files = append(l.files, f)
	return f
}

// Close closes every log file.
func (l *Logger) Close() error {
	var errs []error
	for _, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", f.Filename, err))
		}
	}
	l.files = nil
	return errors.Join(errs...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "console":
		return NewConsoleHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}
