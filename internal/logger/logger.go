// Package logger provides a small leveled wrapper around the standard logger.
package logger

import (
	"io"
	"log"
)

// Level selects which messages are written.
type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger writes tagged, leveled lines to an underlying *log.Logger.
type Logger struct {
	out   *log.Logger
	level Level
	tag   string
}

// New wraps out. Messages above level are discarded.
func New(out *log.Logger, level Level) *Logger {
	return &Logger{out: out, level: level}
}

// Discard returns a logger that writes nothing. Handy in tests.
func Discard() *Logger {
	return New(log.New(io.Discard, "", 0), LevelNone)
}

// WithTag returns a copy of l that prefixes every line with [tag].
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{out: l.out, level: l.level, tag: tag}
}

// Level reports the configured level.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) prefix(label, format string) string {
	s := format
	if label != "" {
		s = label + " " + s
	}
	if l.tag != "" {
		s = "[" + l.tag + "] " + s
	}
	return s
}

func (l *Logger) Debugf(format string, v ...any) {
	if l.level >= LevelDebug {
		l.out.Printf(l.prefix("DEBUG:", format), v...)
	}
}

func (l *Logger) Infof(format string, v ...any) {
	if l.level >= LevelInfo {
		l.out.Printf(l.prefix("", format), v...)
	}
}

func (l *Logger) Warnf(format string, v ...any) {
	if l.level >= LevelWarn {
		l.out.Printf(l.prefix("WARN:", format), v...)
	}
}

func (l *Logger) Errorf(format string, v ...any) {
	if l.level >= LevelError {
		l.out.Printf(l.prefix("ERROR:", format), v...)
	}
}

// Fatalf always logs, then exits the process.
func (l *Logger) Fatalf(format string, v ...any) {
	l.out.Fatalf(l.prefix("FATAL:", format), v...)
}
