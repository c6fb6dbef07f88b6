package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin tagged wrapper around a zap SugaredLogger. Tags
// render as bracketed prefixes ("[Google][user@example.com] ...") so
// log lines stay greppable per provider and account.
type Logger struct {
	sugar *zap.SugaredLogger
	tags  []string
}

// New creates a Logger at the given level ("debug", "info", "warn",
// "error"). Unknown levels fall back to info.
func New(level string) *Logger {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{sugar: z.Sugar()}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// With returns a child logger with extra tags appended.
func (l *Logger) With(tags ...string) *Logger {
	merged := make([]string, 0, len(l.tags)+len(tags))
	merged = append(merged, l.tags...)
	merged = append(merged, tags...)
	return &Logger{sugar: l.sugar, tags: merged}
}

func (l *Logger) prefix() string {
	if len(l.tags) == 0 {
		return ""
	}
	return "[" + strings.Join(l.tags, "][") + "] "
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, v ...any) {
	l.sugar.Debugf(l.prefix()+format, v...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, v ...any) {
	l.sugar.Infof(l.prefix()+format, v...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, v ...any) {
	l.sugar.Warnf(l.prefix()+format, v...)
}

// Error logs an error with a message describing what failed.
func (l *Logger) Error(err error, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	// The message is already formatted; it must not be re-interpreted as
	// a format string (error text can carry % escapes).
	l.sugar.Error(l.prefix() + msg)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
