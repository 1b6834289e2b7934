// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the process logger for guardian commands.
//
// Output goes to stderr by default so stdout stays free for reports. An
// optional file sink writes JSON lines to {dir}/{service}_{date}.log next
// to the console output:
//
//	┌──────────────────────────────────────┐
//	│               Logger                 │
//	│  ┌──────────────┐  ┌──────────────┐  │
//	│  │ stderr/Writer│  │  log file    │  │
//	│  │ text or JSON │  │  JSON lines  │  │
//	│  └──────────────┘  └──────────────┘  │
//	└──────────────────────────────────────┘
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.guardian/logs",
//	    Service: "guardian",
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// The interactive dashboard sets Quiet so log lines do not tear the
// terminal UI; the file sink keeps recording.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrUnknownLevel is returned by ParseLevel.
var ErrUnknownLevel = errors.New("unknown log level")

// DefaultService names log files when Config.Service is empty.
const DefaultService = "guardian"

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel accepts debug, info, warn (or warning) and error, in any case.
// The empty string is LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// Config controls logger construction.
type Config struct {
	Level Level

	// LogDir enables the JSON file sink. "~" is expanded.
	LogDir string

	// Service prefixes log file names. Default: DefaultService.
	Service string

	// JSON switches console output from text to JSON.
	JSON bool

	// Quiet disables console output. The file sink is unaffected.
	Quiet bool

	// Writer receives console output. Default: os.Stderr.
	Writer io.Writer
}

// Logger wraps slog.Logger and owns the log file, if any.
//
// Thread Safety: Safe for concurrent use.
type Logger struct {
	*slog.Logger

	path string
	file *os.File
	mu   sync.Mutex
}

// New creates a logger from cfg.
//
// Description:
//
//	Builds one handler per destination and fans records out to all of
//	them. With Quiet and no LogDir the logger discards everything.
//
// Outputs:
//   - *Logger: Close it to flush and release the log file.
//   - error: Non-nil if the log directory or file cannot be created.
func New(cfg Config) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}
	l := &Logger{}

	var handlers []slog.Handler
	if !cfg.Quiet {
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}

	if cfg.LogDir != "" {
		service := cfg.Service
		if service == "" {
			service = DefaultService
		}
		dir := expandPath(cfg.LogDir)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.path = path
		l.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
	}

	switch len(handlers) {
	case 0:
		l.Logger = slog.New(slog.NewTextHandler(io.Discard, opts))
	case 1:
		l.Logger = slog.New(handlers[0])
	default:
		l.Logger = slog.New(&multiHandler{handlers: handlers})
	}
	return l, nil
}

// Default returns an info-level stderr logger.
func Default() *Logger {
	l, _ := New(Config{Level: LevelInfo})
	return l
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.Logger
}

// Path returns the log file path, or "" when there is no file sink.
func (l *Logger) Path() string {
	return l.path
}

// Close syncs and closes the log file. It is safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	var errs []error
	if err := l.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync log file: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	l.file = nil
	return errors.Join(errs...)
}

// =============================================================================
// Multi-handler
// =============================================================================

// multiHandler sends each record to every handler that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}

// expandPath replaces a leading ~ with the home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
