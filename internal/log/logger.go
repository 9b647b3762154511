// SPDX-License-Identifier: MIT
//
// Package log is the application logger: a small leveled API over a shared
// logrus instance. Nothing on the audio callback path logs; faults reach
// the log through the controller callbacks.
package log

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Fields is an alias so callers do not need to import logrus.
type Fields = logrus.Fields

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

func (l LogLevel) toLogrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

var (
	currentLevel atomic.Uint32
	logger       = logrus.New()
)

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
	logger.SetLevel(level.toLogrus())
}

// GetLevel returns the global logging level.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects log output, mainly for tests and the TUI which owns
// the terminal.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetJSON switches to JSON lines output.
func SetJSON(enabled bool) {
	if enabled {
		logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// WithComponent is shorthand for WithFields(Fields{"component": name}).
func WithComponent(name string) *logrus.Entry {
	return logger.WithField("component", name)
}

func Debugf(format string, v ...any) { logger.Debugf(format, v...) }
func Infof(format string, v ...any)  { logger.Infof(format, v...) }
func Warnf(format string, v ...any)  { logger.Warnf(format, v...) }
func Errorf(format string, v ...any) { logger.Errorf(format, v...) }

// Fatalf logs and exits the process.
func Fatalf(format string, v ...any) { logger.Fatalf(format, v...) }

func Debug(v ...any) { logger.Debug(v...) }
func Info(v ...any)  { logger.Info(v...) }
func Warn(v ...any)  { logger.Warn(v...) }
func Error(v ...any) { logger.Error(v...) }

// Fatal logs and exits the process.
func Fatal(v ...any) { logger.Fatal(v...) }
