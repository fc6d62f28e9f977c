// Package logger provides a leveled logging interface backed by logrus.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines the logging interface used across the application.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

type logrusLogger struct {
	l *logrus.Logger
}

// New creates a logger whose level is taken from the LOG_LEVEL
// environment variable (debug, info, warn, error; default info).
func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &logrusLogger{l: l}
}

func parseLevel(levelStr string) logrus.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *logrusLogger) Debug(v ...interface{})                 { l.l.Debug(v...) }
func (l *logrusLogger) Debugf(format string, v ...interface{}) { l.l.Debugf(format, v...) }
func (l *logrusLogger) Info(v ...interface{})                  { l.l.Info(v...) }
func (l *logrusLogger) Infof(format string, v ...interface{})  { l.l.Infof(format, v...) }
func (l *logrusLogger) Warn(v ...interface{})                  { l.l.Warn(v...) }
func (l *logrusLogger) Warnf(format string, v ...interface{})  { l.l.Warnf(format, v...) }
func (l *logrusLogger) Error(v ...interface{})                 { l.l.Error(v...) }
func (l *logrusLogger) Errorf(format string, v ...interface{}) { l.l.Errorf(format, v...) }
func (l *logrusLogger) Fatal(v ...interface{})                 { l.l.Fatal(v...) }
func (l *logrusLogger) Fatalf(format string, v ...interface{}) { l.l.Fatalf(format, v...) }
