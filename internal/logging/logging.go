// Package logging constructs per-run loggers. Loggers are passed into each
// pipeline stage explicitly; there is no process-global registry, so
// repeated runs never stack duplicate outputs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to <dir>/<name>.log, and to stderr as well
// when verboseConsole is set. The directory is created idempotently.
func New(dir, name string, verboseConsole bool) (*logrus.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if verboseConsole {
		logger.SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		logger.SetOutput(f)
	}
	logger.SetLevel(logrus.InfoLevel)

	closeFn := func() { f.Close() }
	return logger, closeFn, nil
}

// Discard returns a logger that drops everything; used by tests and as a
// fallback when file logging is disabled.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
