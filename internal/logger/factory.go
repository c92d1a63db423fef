// Package logger builds prefixed charmbracelet/log loggers for cxml's
// command-line tools.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Default creates a logger that writes to stderr under prefix, respecting
// the process-wide log level already set via log.SetLevel.
func Default(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: false,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// Adapter bridges a charmbracelet/log.Logger to cxml.Logger, whose single
// Logf method doesn't exist on *log.Logger directly.
type Adapter struct {
	*log.Logger
}

// Logf implements cxml.Logger at debug level, since a Parser's diagnostic
// messages are not user-facing application events.
func (a Adapter) Logf(format string, args ...interface{}) {
	a.Logger.Debugf(format, args...)
}
