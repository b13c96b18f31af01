// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Config describes where and how diagnostic logs are written.
type Config struct {
	// Output is one of stdout (the default), stderr, file, or discard.
	Output string

	// Format is either text (the default) or json.
	Format string

	// Level is the minimum level logged:  debug, info (the default), warn, or error.
	Level string

	// FilePath is the log file used when Output is file.
	FilePath string
}

// Logging owns a structured logger and, for file output, the file it writes to.
type Logging struct {
	logger *slog.Logger
	file   *reopenFile
}

// reopenFile is an io.Writer over a file that can be reopened in place, so that
// external tools can rotate it
type reopenFile struct {
	lock sync.Mutex
	path string
	f    *os.File
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(filepath.Clean(path), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
}

func (rf *reopenFile) Write(p []byte) (int, error) {
	rf.lock.Lock()
	defer rf.lock.Unlock()
	return rf.f.Write(p)
}

func (rf *reopenFile) reopen() error {
	f, err := openLogFile(rf.path)
	if err != nil {
		return err
	}

	rf.lock.Lock()
	old := rf.f
	rf.f = f
	rf.lock.Unlock()

	return old.Close()
}

func (rf *reopenFile) close() error {
	rf.lock.Lock()
	defer rf.lock.Unlock()
	return rf.f.Close()
}

// New builds a Logging from configuration.
func New(cfg Config) (*Logging, error) {
	var level slog.Level
	if len(cfg.Level) > 0 {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level is invalid value: %s", cfg.Level)
		}
	}

	l := new(Logging)
	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout

	case "stderr":
		output = os.Stderr

	case "discard":
		l.logger = slog.New(slog.DiscardHandler)
		return l, nil

	case "file":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}

		l.file = &reopenFile{path: cfg.FilePath, f: f}
		output = l.file

	default:
		return nil, fmt.Errorf("log output is invalid value: %s", cfg.Output)
	}

	options := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "", "text":
		l.logger = slog.New(slog.NewTextHandler(output, options))

	case "json":
		l.logger = slog.New(slog.NewJSONHandler(output, options))

	default:
		l.Close()
		return nil, fmt.Errorf("log format is invalid value: %s", cfg.Format)
	}

	return l, nil
}

// Logger returns the configured logger.  A nil Logging produces a logger that discards everything.
func (l *Logging) Logger() *slog.Logger {
	if l == nil || l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return l.logger
}

// Reopen reopens the log file, if logging to a file.  Otherwise, this method does nothing.
func (l *Logging) Reopen() error {
	if l == nil || l.file == nil {
		return nil
	}

	return l.file.reopen()
}

// Close releases the log file, if any.
func (l *Logging) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	return l.file.close()
}
