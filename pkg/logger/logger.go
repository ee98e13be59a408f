package logger

import (
	"io"
	"log"
	"os"
)

// Logger writes leveled diagnostics to stderr. Stdout is left alone because
// the stdio transport uses it for JSON-RPC frames.
type Logger struct {
	verbose bool
	logger  *log.Logger
}

func New(verbose bool) *Logger {
	return NewWithWriter(verbose, os.Stderr)
}

// NewWithWriter builds a logger that writes diagnostics to w.
func NewWithWriter(verbose bool, w io.Writer) *Logger {
	return &Logger{
		verbose: verbose,
		logger:  log.New(w, "", log.LstdFlags),
	}
}

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// StdLogger exposes the underlying *log.Logger for libraries that accept one.
func (l *Logger) StdLogger() *log.Logger {
	return l.logger
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Printf("[INFO] "+format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.verbose {
		l.logger.Printf("[DEBUG] "+format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logger.Printf("[WARN] "+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Printf("[ERROR] "+format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.logger.Printf("[FATAL] "+format, args...)
	os.Exit(1)
}
