// Package logger provides leveled logging for sslops.
//
// Diagnostics go to stderr through a process-wide logrus logger, separate
// from the user-facing output that the output package writes to stdout.
// This keeps --json output machine readable while --verbose is on.
//
// # Log Levels
//
// Four levels are exposed, in order of severity: Debug, Info, Warn, Error.
// By default only Warn and Error are shown; Init(true) enables everything.
//
// # Usage
//
//	logger.Init(verbose)
//	logger.Debug("staging key in %s", dir)
//	logger.InfoFields("certificate issued", map[string]interface{}{
//	    "domain": "example.com",
//	    "server": "web-1",
//	})
//
// # Output Format
//
// Lines use logrus' text formatter with sorted fields:
//
//	time="2026-10-19 10:30:45" level=info msg="certificate issued" domain=example.com server=web-1
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level represents a logging severity level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func fromLogrus(l logrus.Level) Level {
	switch {
	case l >= logrus.DebugLevel:
		return LevelDebug
	case l == logrus.InfoLevel:
		return LevelInfo
	case l == logrus.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}

// Global logger instance.
var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init sets the global level from the --verbose flag.
// verbose enables Debug and Info; otherwise only Warn and Error are shown.
func Init(verbose bool) {
	if verbose {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.WarnLevel)
}

// SetLevel sets the minimum log level for the global logger.
func SetLevel(level Level) {
	std.SetLevel(level.logrus())
}

// GetLevel returns the current log level.
func GetLevel() Level {
	return fromLogrus(std.GetLevel())
}

// SetOutput sets the output destination. nil restores os.Stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	std.SetOutput(w)
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// DebugFields logs a debug message with structured fields.
func DebugFields(msg string, fields map[string]interface{}) {
	std.WithFields(fields).Debug(msg)
}

// InfoFields logs an informational message with structured fields.
func InfoFields(msg string, fields map[string]interface{}) {
	std.WithFields(fields).Info(msg)
}

// WarnFields logs a warning message with structured fields.
func WarnFields(msg string, fields map[string]interface{}) {
	std.WithFields(fields).Warn(msg)
}

// ErrorFields logs an error message with structured fields.
func ErrorFields(msg string, fields map[string]interface{}) {
	std.WithFields(fields).Error(msg)
}

// LogError logs err with a context message. nil errors are ignored.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	std.WithError(err).Error(msg)
}
