// Package log provides the small structured-logging surface exchange uses
// at exchange boundaries: the Engine logs the end of each connection's
// exchange loop at Debug, and the server package logs listener-tuning
// failures. Handler panics are not recovered or logged.
//
// Grounded on docker-compose's use of github.com/sirupsen/logrus — the
// teacher (shockwave) is deliberately log-free on its hot path, so the
// logging convention here is adopted from the wider retrieval pack rather
// than from the teacher itself (see SPEC_FULL.md §3.1).
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Field is one structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F is a short constructor for Field, used at call sites.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger is the surface exchange depends on. A nil Logger is never passed
// internally; use Noop() for a configuration that wants no output.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger returns a Logger backed by a logrus.Logger writing to w
// at the given level. Pass os.Stderr for conventional server logging.
func NewLogrusLogger(w io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// Default returns a reasonable out-of-the-box Logger: logrus at Info level
// writing to stderr, mirroring a typical server's zero-config default.
func Default() Logger {
	return NewLogrusLogger(os.Stderr, logrus.InfoLevel)
}

func (l *logrusLogger) with(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.entry.WithFields(data)
}

func (l *logrusLogger) Debug(msg string, fields ...Field) { l.with(fields).Debug(msg) }
func (l *logrusLogger) Info(msg string, fields ...Field)  { l.with(fields).Info(msg) }
func (l *logrusLogger) Warn(msg string, fields ...Field)  { l.with(fields).Warn(msg) }
func (l *logrusLogger) Error(msg string, fields ...Field) { l.with(fields).Error(msg) }

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}

// Noop returns a Logger that discards everything, grounded on
// rivaas-dev-rivaas/router.NoopLogger's singleton no-op pattern.
func Noop() Logger { return noopLogger{} }
