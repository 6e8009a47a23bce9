// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan renders a project as plain text: an indented directory tree
// followed by the contents of key files.
//
// The rendering is cached by (root, depth). It is the only cached artifact
// in the system; graphs are always rebuilt.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultMaxDepth = 4
	DefaultTTL      = 5 * time.Minute

	truncateAbove = 1500
	keepHead      = 1000
	keepTail      = 500
	truncMarker   = "\n...[TRUNCATED]...\n"

	keyPrefix = "archgraph:scan:"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("scan root not found")

	// ErrRootNotDirectory is returned when the scan root is a file.
	ErrRootNotDirectory = errors.New("scan root is not a directory")
)

// IgnoreDirs are directory names never descended into.
var IgnoreDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"env":          true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".idea":        true,
	".vscode":      true,
}

// listed files appear in the tree.
var listed = map[string]bool{
	".py": true, ".md": true, ".sql": true, ".yaml": true, ".yml": true,
	".json": true, ".toml": true, ".env": true, ".js": true, ".ts": true,
}

// embedded files also have their contents appended.
var embedded = map[string]bool{
	".py": true, ".sql": true, ".yaml": true, ".yml": true, ".toml": true,
	".env": true, ".js": true, ".ts": true,
}

// Cache stores rendered scans.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Scanner renders directory scans.
type Scanner struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithCache enables caching.
func WithCache(c Cache) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithTTL sets how long a scan stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(s *Scanner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScanner creates a Scanner. Without WithCache every call rescans.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey returns the cache key for (root, maxDepth).
func CacheKey(root string, maxDepth int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", root, maxDepth)))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Scan renders root down to maxDepth path segments.
//
// Description:
//
//	The output is
//
//	  Project Root: <root>
//	  Structure:
//	  <tree, 4 spaces of indent per level>
//
//	  Total Files Scanned: <n>
//
//	  Key File Contents:
//	  --- FILE: <rel> ---
//	  <content>
//
//	Entries are visited in lexical order. Content longer than 1500 runes
//	keeps the first 1000 and last 500 around a truncation marker.
//	Unreadable files are logged and skipped. A cached result for the same
//	(root, maxDepth) is returned without touching the file system.
//
// Outputs:
//
//	string - The rendering.
//	error  - ErrRootNotFound, ErrRootNotDirectory, or cancellation.
func (s *Scanner) Scan(ctx context.Context, root string, maxDepth int) (string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	key := CacheKey(abs, maxDepth)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Info("using cached file scan", slog.String("root", abs))
			return cached, nil
		}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootNotDirectory, abs)
	}

	out, files, err := s.render(ctx, abs, maxDepth)
	if err != nil {
		return "", err
	}
	s.logger.Info("scan complete", slog.String("root", abs), slog.Int("files", files))

	if s.cache != nil {
		s.cache.Set(ctx, key, out, s.ttl)
	}
	return out, nil
}

func (s *Scanner) render(ctx context.Context, root string, maxDepth int) (string, int, error) {
	var tree, contents strings.Builder
	fmt.Fprintf(&tree, "Project Root: %s\nStructure:\n", root)
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return walkErr
		}
		if walkErr != nil {
			s.logger.Warn("scan: cannot read entry", slog.String("path", path), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() && IgnoreDirs[d.Name()] {
			return fs.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/") + 1
		if depth > maxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		indent := strings.Repeat(" ", 4*(depth-1))

		if d.IsDir() {
			fmt.Fprintf(&tree, "%s%s/\n", indent, d.Name())
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !listed[ext] && name != "Dockerfile" {
			return nil
		}
		fmt.Fprintf(&tree, "%s%s\n", indent, name)
		files++

		if !embedded[ext] && name != "Dockerfile" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("scan: failed to read file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		fmt.Fprintf(&contents, "--- FILE: %s ---\n%s\n\n", rel, Truncate(strings.ToValidUTF8(string(data), "")))
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	fmt.Fprintf(&tree, "\n\nTotal Files Scanned: %d\n\nKey File Contents:\n", files)
	tree.WriteString(contents.String())
	return tree.String(), files, nil
}

// Truncate shortens content longer than 1500 runes to its first 1000 and
// last 500 runes joined by a marker.
func Truncate(content string) string {
	r := []rune(content)
	if len(r) <= truncateAbove {
		return content
	}
	return string(r[:keepHead]) + truncMarker + string(r[len(r)-keepTail:])
}
