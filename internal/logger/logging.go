// Package logger provides charmbracelet/log loggers preconfigured for jdict packages.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a default charm log with the given prefix. Output goes to
// stderr so stdout stays free for command output and IPC frames.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// Discard returns a logger that drops everything. Tests use it to keep output quiet.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// SetLevel parses a level name and applies it to the global logger. Unknown
// names leave the level unchanged and return false.
func SetLevel(name string) bool {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return false
	}
	log.SetLevel(lvl)
	return true
}
