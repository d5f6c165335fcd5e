// Package logging sets up the structured logger shared by every component.
//
// The terminal belongs to the TUI, so records go to a JSON log file. A
// logger without a file discards everything.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type Config struct {
	Level   slog.Level
	File    string
	Service string
}

// Logger is a slog.Logger that owns its log file
type Logger struct {
	*slog.Logger

	mu   sync.Mutex
	file *os.File
}

func New(cfg Config) (*Logger, error) {
	var w io.Writer = io.Discard
	var file *os.File

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, file = f, f
	}

	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level}))
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	return &Logger{Logger: l, file: file}, nil
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// Close flushes and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
