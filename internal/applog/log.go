// Package applog provides the process-wide structured logger. It wraps
// github.com/charmbracelet/log — a direct dependency climp's own go.mod
// already declared but never actually imported anywhere in its source; this
// package is what finally gives that dependency a job.
package applog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the shared structured logger type, re-exported so callers don't
// need to import charmbracelet/log directly.
type Logger = log.Logger

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// Init reconfigures the base logger's level and destination. w defaults to
// os.Stderr when nil — the terminal UI owns stdout, so diagnostics never go
// there. debug enables caller reporting and DebugLevel; otherwise InfoLevel.
func Init(w io.Writer, debug bool) {
	if w == nil {
		w = os.Stderr
	}
	base = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    debug,
		TimeFormat:      "15:04:05",
	})
	if debug {
		base.SetLevel(log.DebugLevel)
	} else {
		base.SetLevel(log.InfoLevel)
	}
}

// With returns a child logger carrying the given key/value pairs on every
// subsequent message — the component-scoped-sublogger idiom
// (applog.With("component", "mixer")) used throughout this codebase.
func With(keyvals ...interface{}) *Logger {
	return base.With(keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) { base.Debug(msg, keyvals...) }
func Info(msg interface{}, keyvals ...interface{})  { base.Info(msg, keyvals...) }
func Warn(msg interface{}, keyvals ...interface{})  { base.Warn(msg, keyvals...) }
func Error(msg interface{}, keyvals ...interface{}) { base.Error(msg, keyvals...) }
