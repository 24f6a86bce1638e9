// Package logging adds a level word and component tag to a standard
// *log.Logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

type Logger struct {
	out       *log.Logger
	level     Level
	component string
	now       func() time.Time
}

func New(out *log.Logger, component string, level Level) *Logger {
	if out == nil {
		out = log.Default()
	}
	return &Logger{out: out, level: level, component: component, now: time.Now}
}

// Discard returns a logger that writes nothing, for tests.
func Discard() *Logger {
	return New(log.New(io.Discard, "", 0), "test", LevelError+1)
}

// With returns a logger for another component sharing the same output and level.
func (l *Logger) With(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("%s %s %s: %s", l.now().Format(time.RFC3339), level, l.component, msg)
}
