// Package telemetry provides the structured logging (logrus) and
// Prometheus metrics the rest of this repository's packages use for
// diagnostics.
package telemetry

import "github.com/sirupsen/logrus"

// Logger wraps a structured logger so internal/query depends on a narrow
// interface rather than logrus directly.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger returns a Logger writing structured fields through logrus at
// the given level.
func NewLogger(level logrus.Level) *Logger {
	l := logrus.New()
	l.SetLevel(level)
	return &Logger{entry: logrus.NewEntry(l)}
}

// NewNopLogger returns a Logger that discards everything below Error,
// the default for a Query constructed without telemetry wired in.
func NewNopLogger() *Logger {
	return NewLogger(logrus.ErrorLevel)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Debugf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Errorf(format, args...)
}

// WithField returns a Logger annotated with one structured field,
// mirroring logrus's own fluent field-building idiom.
func (l *Logger) WithField(key string, value any) *Logger {
	if l == nil {
		return l
	}
	return &Logger{entry: l.entry.WithField(key, value)}
}
