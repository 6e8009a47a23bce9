// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch reports debounced source changes under a project root so
// the graph can be rebuilt and revalidated while editing.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNilHandler is returned by New when no handler is given.
var ErrNilHandler = errors.New("watch: nil handler")

// Op is the kind of change.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file event.
type Change struct {
	// Path is root-relative with forward slashes.
	Path string
	Op   Op
	Time time.Time
}

// Handler receives a batch of changes, deduplicated by path with the
// latest op kept, in first-seen order. It runs on the watcher goroutine.
type Handler func(ctx context.Context, changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is delivered. Default: 300ms.
	Debounce time.Duration

	// Extensions selects which files are reported. Default: [".py"].
	Extensions []string

	// Names are extra base names reported regardless of extension.
	Names []string

	// IgnoreDirs are directory names not watched.
	IgnoreDirs []string

	Logger *slog.Logger
}

// DefaultOptions returns the defaults.
func DefaultOptions() Options {
	return Options{
		Debounce:   300 * time.Millisecond,
		Extensions: []string{".py"},
		IgnoreDirs: []string{".git", "__pycache__", ".venv", "venv", "env", "node_modules", "dist", "build", ".idea", ".vscode"},
	}
}

// Watcher watches a directory tree recursively.
type Watcher struct {
	root    string
	opts    Options
	handler Handler
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
}

// New creates a Watcher for root.
//
// Outputs:
//
//	*Watcher - Call Run to start watching.
//	error    - ErrNilHandler, or a failure to create the OS watcher.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = def.Extensions
	}
	if opts.IgnoreDirs == nil {
		opts.IgnoreDirs = def.IgnoreDirs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{root: abs, opts: opts, handler: handler, fsw: fsw, logger: logger}, nil
}

// Run watches until ctx is canceled, then flushes any pending batch and
// releases the OS watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.logger.Info("watching", slog.String("root", w.root))

	var (
		batch  []Change
		timer  *time.Timer
		timerC <-chan time.Time
	)
	flush := func(ctx context.Context) {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		changes := dedupe(batch)
		batch = batch[:0]
		w.handler(ctx, changes)
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush(ctx)
				return nil
			}
			if ev.Has(fsnotify.Create) && w.isDir(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("cannot watch new directory", slog.String("path", ev.Name), slog.String("error", err.Error()))
				}
				continue
			}
			change, ok := w.convert(ev)
			if !ok {
				continue
			}
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			flush(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush(ctx)
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && slices.Contains(w.opts.IgnoreDirs, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// convert maps an event to a Change, rejecting files outside the filter
// and paths under ignored directories.
func (w *Watcher) convert(ev fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		if slices.Contains(w.opts.IgnoreDirs, p) {
			return Change{}, false
		}
	}
	base := parts[len(parts)-1]
	if !slices.Contains(w.opts.Names, base) && !slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(base))) {
		return Change{}, false
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpWrite
	case ev.Has(fsnotify.Remove):
		op = OpRemove
	case ev.Has(fsnotify.Rename):
		op = OpRename
	default:
		return Change{}, false
	}
	return Change{Path: rel, Op: op, Time: time.Now()}, true
}

func dedupe(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
