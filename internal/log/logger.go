// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

var (
	currentLevel atomic.Uint32
	output       atomic.Pointer[zerolog.Logger]
	exit         = os.Exit
)

func init() {
	SetLevel(LevelInfo)
	SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMicro})
}

// SetOutput replaces the destination of all loggers. Plain writers receive
// one JSON object per line.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	output.Store(&l)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

// Logger tags every message with a component name.
type Logger struct {
	component string
}

// With returns a Logger for component.
func With(component string) Logger {
	return Logger{component: component}
}

func (l Logger) emit(level LogLevel, msg string, err error) {
	if !shouldLog(level) && level != LevelFatal {
		return
	}
	e := output.Load().WithLevel(level.zerolog())
	if l.component != "" {
		e = e.Str("component", l.component)
	}
	if err != nil {
		e = e.Err(err)
	}
	e.Msg(msg)
	if level == LevelFatal {
		exit(1)
	}
}

func (l Logger) Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		l.emit(LevelDebug, fmt.Sprintf(format, v...), nil)
	}
}

func (l Logger) Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		l.emit(LevelInfo, fmt.Sprintf(format, v...), nil)
	}
}

func (l Logger) Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		l.emit(LevelWarn, fmt.Sprintf(format, v...), nil)
	}
}

func (l Logger) Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		l.emit(LevelError, fmt.Sprintf(format, v...), nil)
	}
}

// Error logs err with msg at error level.
func (l Logger) Error(err error, msg string) {
	l.emit(LevelError, msg, err)
}

// Warn logs err with msg at warn level.
func (l Logger) Warn(err error, msg string) {
	l.emit(LevelWarn, msg, err)
}

// --- Package-level functions ---

var root Logger

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) { root.Debugf(format, v...) }

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) { root.Infof(format, v...) }

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) { root.Warnf(format, v...) }

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) { root.Errorf(format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	root.emit(LevelFatal, fmt.Sprintf(format, v...), nil)
}

// Info logs an info message if the level is appropriate.
func Info(v ...any) {
	if shouldLog(LevelInfo) {
		root.emit(LevelInfo, fmt.Sprint(v...), nil)
	}
}
