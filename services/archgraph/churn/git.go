// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package churn counts how often files changed in version control.
package churn

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for GitChurn.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultMaxOutputSize = 1 << 20
	DefaultCacheSize     = 4096
	DefaultCacheTTL      = 5 * time.Minute
)

var (
	// ErrGitUnavailable is returned when no git binary is on PATH.
	ErrGitUnavailable = errors.New("git executable not found")

	// ErrInvalidPath is returned for paths git could read as an option.
	ErrInvalidPath = errors.New("invalid file path")
)

// GitChurn counts commits touching a file with `git log --follow`.
//
// # Description
//
// Each lookup runs one git subprocess in the repository directory, with
// explicit arguments and no shell, bounded by a timeout and an output cap.
// Results are cached per path for a short TTL so repeated analyses of the
// same tree do not re-run git for every module.
//
// # Thread Safety
//
// Safe for concurrent use.
type GitChurn struct {
	repoDir       string
	timeout       time.Duration
	maxOutputSize int
	cache         *expirable.LRU[string, int]
	runs          atomic.Int64
}

// Option configures a GitChurn.
type Option func(*GitChurn)

// WithTimeout bounds each git invocation.
func WithTimeout(d time.Duration) Option {
	return func(g *GitChurn) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithCacheTTL sets how long a count is reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *GitChurn) {
		if ttl <= 0 {
			g.cache = nil
			return
		}
		g.cache = expirable.NewLRU[string, int](DefaultCacheSize, nil, ttl)
	}
}

// NewGitChurn creates a GitChurn rooted at repoDir.
func NewGitChurn(repoDir string, opts ...Option) *GitChurn {
	g := &GitChurn{
		repoDir:       repoDir,
		timeout:       DefaultTimeout,
		maxOutputSize: DefaultMaxOutputSize,
		cache:         expirable.NewLRU[string, int](DefaultCacheSize, nil, DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Churn returns the number of commits that touched filePath.
//
// A file with no history returns 0. Errors cover a missing git binary, a
// directory outside a repository, a timeout, and cancellation; callers
// computing metrics replace any error with their default.
func (g *GitChurn) Churn(ctx context.Context, filePath string) (int, error) {
	if filePath == "" || strings.HasPrefix(filePath, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPath, filePath)
	}
	if g.cache != nil {
		if n, ok := g.cache.Get(filePath); ok {
			return n, nil
		}
	}

	out, err := g.executeGit(ctx, "log", "--follow", "--format=%H", "--", filePath)
	if err != nil {
		return 0, err
	}

	n := 0
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}

	if g.cache != nil {
		g.cache.Add(filePath, n)
	}
	return n, nil
}

// RepoDir returns the directory git runs in.
func (g *GitChurn) RepoDir() string { return g.repoDir }

// GitRuns returns how many git subprocesses this GitChurn has started.
func (g *GitChurn) GitRuns() int64 { return g.runs.Load() }

func (g *GitChurn) executeGit(ctx context.Context, args ...string) ([]byte, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, ErrGitUnavailable
	}
	g.runs.Add(1)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: g.maxOutputSize}
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// limitedWriter keeps the first limit bytes and drops the rest.
type limitedWriter struct {
	w       *bytes.Buffer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += written
	if err != nil {
		return written, err
	}
	return n, nil
}
