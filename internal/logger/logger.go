package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"snapdedup/internal/config"
	"sync"
)

// Logger provides leveled logging (info/warning/error) to stdout/stderr and, optionally, files.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger. When the config names a log directory it is created
// and every level is also appended to its own file there.
func NewLogger(config *config.Config) (*Logger, error) {
	logger := &Logger{
		logDir: config.LogDirectory,
	}

	if logger.logDir == "" {
		logger.setupLoggers(os.Stdout, os.Stdout, os.Stderr)
		return logger, nil
	}

	if err := os.MkdirAll(logger.logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	infoFile, err := logger.openLogFile("info.log")
	if err != nil {
		return nil, err
	}
	warningFile, err := logger.openLogFile("warning.log")
	if err != nil {
		logger.Close()
		return nil, err
	}
	errorFile, err := logger.openLogFile("error.log")
	if err != nil {
		logger.Close()
		return nil, err
	}

	logger.setupLoggers(
		io.MultiWriter(os.Stdout, infoFile),
		io.MultiWriter(os.Stdout, warningFile),
		io.MultiWriter(os.Stderr, errorFile),
	)
	return logger, nil
}

// New creates a Logger writing every level to w. Useful for tests and tools.
func New(w io.Writer) *Logger {
	logger := &Logger{}
	logger.setupLoggers(w, w, w)
	return logger
}

// setupLoggers initializes per-level loggers.
func (l *Logger) setupLoggers(infoWriter, warningWriter, errorWriter io.Writer) {
	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	filename := filepath.Join(l.logDir, name)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Close closes the log files, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, file := range l.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
