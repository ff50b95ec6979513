// Package log is a small structured-logging facade over log/slog,
// following the teacher's log package idiom: a handful of named-level
// methods (Trace/Debug/Info/Warn/Error/Crit) plus a process-wide root
// logger, rather than exposing slog directly to callers.
package log

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Level mirrors slog.Level but adds the teacher's Trace/Crit beyond what
// slog ships (slog only has Debug/Info/Warn/Error).
type Level int

const (
	LevelTrace Level = iota - 1
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

func (l Level) slogLevel() slog.Level {
	switch {
	case l <= LevelTrace:
		return slog.Level(-8)
	case l == LevelDebug:
		return slog.LevelDebug
	case l == LevelInfo:
		return slog.LevelInfo
	case l == LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Logger is the facade every component in this repository logs through.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)
	With(ctx ...any) Logger
}

type logger struct {
	h slog.Handler
}

// New returns a Logger with ctx as its base key/value pairs.
func New(ctx ...any) Logger {
	return &logger{h: slog.NewTextHandler(os.Stderr, nil).WithAttrs(toAttrs(ctx))}
}

// NewAtLevel is New with its minimum enabled level overridden, for callers
// (e.g. a CLI's --verbosity flag) that need something other than slog's
// default Info threshold.
func NewAtLevel(level Level, ctx ...any) Logger {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	return &logger{h: slog.NewTextHandler(os.Stderr, opts).WithAttrs(toAttrs(ctx))}
}

func toAttrs(ctx []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, _ := ctx[i].(string)
		attrs = append(attrs, slog.Any(key, ctx[i+1]))
	}
	return attrs
}

func (l *logger) log(level Level, msg string, ctx ...any) {
	sl := level.slogLevel()
	if !l.h.Enabled(context.Background(), sl) {
		return
	}
	r := slog.NewRecord(time.Now(), sl, msg, 0)
	r.Add(ctx...)
	_ = l.h.Handle(context.Background(), r)
}

func (l *logger) Trace(msg string, ctx ...any) { l.log(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.log(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.log(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.log(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.log(LevelError, msg, ctx...) }

// Crit logs at the highest level and then terminates the process,
// matching the teacher's go-ethereum convention that Crit is fatal.
func (l *logger) Crit(msg string, ctx ...any) {
	l.log(LevelCrit, msg, ctx...)
	os.Exit(1)
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{h: l.h.WithAttrs(toAttrs(ctx))}
}

var root Logger = New()

// Root returns the process-wide default logger.
func Root() Logger { return root }

// SetDefault replaces the process-wide default logger.
func SetDefault(l Logger) { root = l }

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }
