// Package logger provides leveled logging for the precis CLI.
// Warnings are always written; debug and info messages appear only when
// verbose mode is enabled via the --verbose flag, so users can follow the
// chunk, map and reduce stages of a run.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	level             = new(slog.LevelVar)
	base              = newLogger(output)
)

func init() {
	level.Set(slog.LevelWarn)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			// Timestamps add noise to CLI output.
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger(w)
}

// Logger returns the underlying structured logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(lvl slog.Level, format string, args ...any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.Log(ctx, lvl, fmt.Sprintf(format, args...))
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
