// Package util holds small process-level helpers shared by the binaries.
package util

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger writes JSON lines to stdout at level (info when unparsable).
func NewLogger(level string) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

// NewFileLogger mirrors NewLogger into an append-mode file as well. The returned
// closer releases the file; it is a no-op when path is empty.
func NewFileLogger(level, path string) (zerolog.Logger, io.Closer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewLogger(level), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return newLogger(zerolog.MultiLevelWriter(os.Stdout, file), level), file, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
