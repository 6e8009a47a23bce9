// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the slog logger used by the archgraph command.
//
// Records go to the console (text or JSON) and, when a log directory is
// configured, also to a per-day JSON file. Library packages take a
// *slog.Logger through their options; only cmd/archgraph constructs a
// Logger and passes Logger.Slog() down.
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

// ParseLevel maps a configuration value to a slog level. Matching ignores
// case and surrounding space; "" means info and "warning" is accepted for
// warn. An unknown value returns slog.LevelInfo with an error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Config controls where a Logger writes.
type Config struct {
	// Level is the minimum level emitted on every destination.
	Level slog.Level

	// LogDir, when set, adds a JSON file <LogDir>/<Service>_<YYYY-MM-DD>.log.
	// A leading "~" means the home directory.
	LogDir string

	// Service is attached to every record as "service".
	Service string

	// JSON selects JSON instead of text on the console.
	JSON bool

	// Output is the console destination. Nil means stderr.
	Output io.Writer
}

// Logger is a *slog.Logger that may own a log file.
//
// Safe for concurrent use. Close is called once by whoever called New.
type Logger struct {
	*slog.Logger

	mu   sync.Mutex
	file *os.File
}

// New creates a Logger. A log directory that cannot be created or opened
// is skipped and logged to the console as a warning.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	console := cfg.Output
	if console == nil {
		console = os.Stderr
	}
	var sinks []slog.Handler
	if cfg.JSON {
		sinks = append(sinks, slog.NewJSONHandler(console, opts))
	} else {
		sinks = append(sinks, slog.NewTextHandler(console, opts))
	}

	l := &Logger{}
	var fileErr error
	if cfg.LogDir != "" {
		l.file, fileErr = openDailyFile(cfg.LogDir, cfg.Service)
		if fileErr == nil {
			sinks = append(sinks, slog.NewJSONHandler(l.file, opts))
		}
	}

	var h slog.Handler = fanout(sinks)
	if len(sinks) == 1 {
		h = sinks[0]
	}
	if cfg.Service != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	l.Logger = slog.New(h)

	if fileErr != nil {
		l.Warn("file logging disabled", slog.String("dir", cfg.LogDir), slog.String("error", fileErr.Error()))
	}
	return l
}

// Slog returns the logger to hand to library options.
func (l *Logger) Slog() *slog.Logger {
	return l.Logger
}

// Close flushes and closes the log file. Later calls return nil.
func (l *Logger) Close() error {
	l.mu.Lock()
	f := l.file
	l.file = nil
	l.mu.Unlock()

	if f == nil {
		return nil
	}
	return errors.Join(f.Sync(), f.Close())
}

func openDailyFile(dir, service string) (*os.File, error) {
	if rest, ok := strings.CutPrefix(dir, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", dir, err)
		}
		dir = filepath.Join(home, rest)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	if service == "" {
		service = "archgraph"
	}
	name := service + "_" + time.Now().Format(time.DateOnly) + ".log"
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
