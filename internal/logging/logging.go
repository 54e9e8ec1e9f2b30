// Package logging configures the process-wide structured logger. Long-running
// commands (daemon, serve) log to a rotated file in the storage directory;
// one-shot CLI commands discard logs unless debug output is requested.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names for sub-loggers.
const (
	CompStorage = "storage"
	CompDaemon  = "daemon"
	CompServer  = "server"
)

// Config holds logging configuration.
type Config struct {
	// LogDir is the directory for the rotated log file. Empty means
	// stderr (debug) or discard.
	LogDir string

	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" (default) or "text".
	Format string

	// MaxSizeMB is the size in MB before rotation (default 5).
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep (default 3).
	MaxBackups int

	// Debug mirrors the --debug flag; without it and without a LogDir,
	// everything is discarded.
	Debug bool
}

var (
	globalMu     sync.RWMutex
	globalLogger *slog.Logger
	rotator      *lumberjack.Logger
)

// Init installs the global logger.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var w io.Writer
	switch {
	case cfg.LogDir != "":
		rotator = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "clipd.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = rotator
		if cfg.Debug {
			w = io.MultiWriter(rotator, os.Stderr)
		}
	case cfg.Debug:
		w = os.Stderr
	default:
		w = io.Discard
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" || cfg.LogDir == "" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	globalLogger = slog.New(handler)
}

// Logger returns the global logger. Safe before Init (returns a discard
// logger).
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return globalLogger
}

// ForComponent returns a sub-logger tagged with the component name. The
// handler is resolved at log time, so package-level loggers created before
// Init pick up the real handler once it is installed.
func ForComponent(name string) *slog.Logger {
	return slog.New(&deferredHandler{component: name})
}

// Shutdown closes the rotating writer, if any.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if rotator != nil {
		rotator.Close()
		rotator = nil
	}
	globalLogger = nil
}

// deferredHandler delegates to the current global handler at log time.
type deferredHandler struct {
	component string
	attrs     []slog.Attr
	group     string
}

func (h *deferredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *deferredHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler()
	handler = handler.WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	return handler.Handle(ctx, r)
}

func (h *deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	copy(merged[len(h.attrs):], attrs)
	return &deferredHandler{component: h.component, attrs: merged, group: h.group}
}

func (h *deferredHandler) WithGroup(name string) slog.Handler {
	return &deferredHandler{component: h.component, attrs: h.attrs, group: name}
}
