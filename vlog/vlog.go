// Package vlog is a thin, module-tagged wrapper around logrus.
//
// Every call site gets a logger bound to a module name; the formatter
// renders lines as "[timestamp][level][module][file:line] message",
// matching the shape of the original C logging framework this module
// replaces. The runtime filter level is process-wide and read through
// logrus's own concurrency-safe level field, so there is exactly one
// place that decides whether a given call is emitted.
package vlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

// root is the single process-wide logrus instance. All module Loggers
// share it so the runtime level filter and output sink are one atomic
// piece of state, per the original's single runtime_log_level global.
var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stderr)

	return l
}

// SetLevel sets the single process-wide runtime log level.
func SetLevel(level logrus.Level) {
	root.SetLevel(level)
}

// SetOutput redirects where log lines are written. Tests use this to
// capture output instead of polluting stderr.
func SetOutput(w io.Writer) {
	root.SetOutput(w)
}

// Logger is a module-tagged handle onto the shared root logger.
type Logger struct {
	module string
}

// New returns a Logger tagged with module, e.g. vlog.New("mmu").
func New(module string) *Logger {
	return &Logger{module: module}
}

func (l *Logger) entry(skip int) *logrus.Entry {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file, line = "???", 0
	}

	return root.WithFields(logrus.Fields{
		"module": l.module,
		"file":   filepath.Base(file),
		"line":   line,
	})
}

// Tracef logs at Trace level.
func (l *Logger) Tracef(format string, args ...any) { l.entry(2).Tracef(format, args...) }

// Debugf logs at Debug level.
func (l *Logger) Debugf(format string, args ...any) { l.entry(2).Debugf(format, args...) }

// Infof logs at Info level.
func (l *Logger) Infof(format string, args ...any) { l.entry(2).Infof(format, args...) }

// Warnf logs at Warning level.
func (l *Logger) Warnf(format string, args ...any) { l.entry(2).Warnf(format, args...) }

// Errorf logs at Error level.
func (l *Logger) Errorf(format string, args ...any) { l.entry(2).Errorf(format, args...) }

// Fatalf logs at Fatal level and terminates the process, matching the
// original's log_message+abort coupling at LOG_FATAL. Callers that need
// to survive a fatal condition (core packages) should use passert
// instead; vlog.Fatalf is for CLI-level unrecoverable setup errors.
func (l *Logger) Fatalf(format string, args ...any) { l.entry(2).Fatalf(format, args...) }

// lineFormatter renders "[ts][level][module][file:line] message".
type lineFormatter struct{}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	module, _ := e.Data["module"].(string)
	file, _ := e.Data["file"].(string)
	line, _ := e.Data["line"].(int)

	msg := fmt.Sprintf("[%s][%s][%s][%s:%d] %s\n",
		e.Time.UTC().Format("2006-01-02T15:04:05Z"),
		levelName(e.Level),
		module,
		file,
		line,
		e.Message,
	)

	return []byte(msg), nil
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.TraceLevel:
		return "TRACE"
	case logrus.DebugLevel:
		return "DEBUG"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.FatalLevel, logrus.PanicLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
