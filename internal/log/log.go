// Package log is a thin key/value logging facade over log/slog.
//
// Call sites use the package-level functions with alternating keys and
// values:
//
//	log.Debug("Lexed source", "file", name, "tokens", len(tokens))
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

type Logger struct {
	inner *slog.Logger
	level *slog.LevelVar
}

var root atomic.Pointer[Logger]

func init() {
	root.Store(New(os.Stderr, slog.LevelWarn))
}

// New returns a logger writing logfmt-style records to w.
func New(w io.Writer, level slog.Level) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	return &Logger{
		inner: slog.New(handler),
		level: lv,
	}
}

// Root returns the logger used by the package-level functions.
func Root() *Logger {
	return root.Load()
}

// SetDefault replaces the root logger.
func SetDefault(l *Logger) {
	root.Store(l)
}

func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

func (l *Logger) Enabled(level slog.Level) bool {
	return l.inner.Enabled(context.Background(), level)
}

// With returns a logger that adds ctx to every record.
func (l *Logger) With(ctx ...any) *Logger {
	return &Logger{
		inner: l.inner.With(ctx...),
		level: l.level,
	}
}

func (l *Logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }

func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }

// ParseLevel accepts debug, info, warn and error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return 0, fmt.Errorf("unknown log level %q", s)
}
