package utils

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Verbose enables diagnostic logging across the manager.
var Verbose bool

var (
	loggerMu sync.RWMutex
	logger   = log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
)

// ConfigureLogging updates the process-global logger settings.
// Call this early (from CLI) and whenever flags change.
func ConfigureLogging(verbose bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	Verbose = verbose
	if verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	} else {
		logger.SetLevel(log.InfoLevel)
		logger.SetReportCaller(false)
	}
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.RFC3339)
}

// SetLogOutput redirects the shared logger, mostly so tests can keep stderr quiet.
func SetLogOutput(w io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger.SetOutput(w)
}

// L returns the shared logger instance. Prefer the package helpers (`Info`, `Warn`, ...)
// unless you need advanced APIs like `.With(...)`.
func L() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Stage returns a child logger prefixed with a pipeline stage name ("collect", "cards", ...).
func Stage(name string) *log.Logger {
	return L().WithPrefix(name)
}

// Logf maps to Debugf so it only shows up with `--verbose`.
func Logf(format string, args ...any) { L().Debugf(format, args...) }

func Debug(msg any, keyvals ...any) { L().Debug(msg, keyvals...) }
func Info(msg any, keyvals ...any)  { L().Info(msg, keyvals...) }
func Warn(msg any, keyvals ...any)  { L().Warn(msg, keyvals...) }
func Error(msg any, keyvals ...any) { L().Error(msg, keyvals...) }
