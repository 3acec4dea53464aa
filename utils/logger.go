package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger provides structured, leveled logging throughout the application.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a new Logger writing to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, "info")
}

// NewLoggerTo creates a Logger writing to w at the given level.
// Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, level string) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{entry: logrus.NewEntry(l)}
}

// WithField returns a child logger that tags every line with key=value.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}
