// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/Hami0095/ai-architecture/services/archgraph/ast"
)

// DefaultIgnoreDirs are directory names never descended into.
var DefaultIgnoreDirs = []string{
	".git",
	"__pycache__",
	".venv",
	"venv",
	"env",
	"node_modules",
	"dist",
	"build",
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Registry supplies parsers by file extension. Only files whose
	// extension has a parser become modules. Default: ast.DefaultRegistry().
	Registry *ast.Registry

	// Logger receives per-file warnings. Default: slog.Default().
	Logger *slog.Logger

	// ExtraIgnoreDirs are directory names skipped in addition to
	// DefaultIgnoreDirs.
	ExtraIgnoreDirs []string

	// ExcludeGlobs are doublestar patterns over root-relative slash paths.
	// A matching directory is skipped entirely; a matching file is not analyzed.
	ExcludeGlobs []string

	// RespectGitignore skips paths matched by <root>/.gitignore. Default: false.
	RespectGitignore bool
}

// DefaultBuilderOptions returns the defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{}
}

// BuilderOption configures BuilderOptions.
type BuilderOption func(*BuilderOptions)

// WithRegistry sets the parser registry.
func WithRegistry(r *ast.Registry) BuilderOption {
	return func(o *BuilderOptions) {
		o.Registry = r
	}
}

// WithLogger sets the logger for per-file warnings.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		o.Logger = l
	}
}

// WithExtraIgnoreDirs adds directory names to skip.
func WithExtraIgnoreDirs(dirs ...string) BuilderOption {
	return func(o *BuilderOptions) {
		o.ExtraIgnoreDirs = append(o.ExtraIgnoreDirs, dirs...)
	}
}

// WithExcludeGlobs adds doublestar exclude patterns.
func WithExcludeGlobs(patterns ...string) BuilderOption {
	return func(o *BuilderOptions) {
		o.ExcludeGlobs = append(o.ExcludeGlobs, patterns...)
	}
}

// WithGitignore toggles .gitignore handling.
func WithGitignore(enabled bool) BuilderOption {
	return func(o *BuilderOptions) {
		o.RespectGitignore = enabled
	}
}

// Builder walks a project tree and assembles a Graph.
//
// Thread Safety: a Builder holds no per-build state and may run several
// builds concurrently. Each build is sequential.
type Builder struct {
	options BuilderOptions
	ignored map[string]bool
}

// NewBuilder creates a Builder.
//
// Invalid exclude patterns are dropped with a warning rather than failing
// every subsequent build.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Registry == nil {
		options.Registry = ast.DefaultRegistry()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	valid := options.ExcludeGlobs[:0:0]
	for _, p := range options.ExcludeGlobs {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		} else {
			options.Logger.Warn("ignoring invalid exclude pattern", slog.String("pattern", p))
		}
	}
	options.ExcludeGlobs = valid

	ignored := make(map[string]bool, len(DefaultIgnoreDirs)+len(options.ExtraIgnoreDirs))
	for _, d := range DefaultIgnoreDirs {
		ignored[d] = true
	}
	for _, d := range options.ExtraIgnoreDirs {
		ignored[d] = true
	}

	return &Builder{options: options, ignored: ignored}
}

// buildState is the mutable state of one Build call.
type buildState struct {
	root      string
	graph     *Graph
	result    *BuildResult
	gitignore *ignore.GitIgnore
	logger    *slog.Logger
}

// Build analyzes every source file under root and returns a frozen graph.
//
// Description:
//
//	Files are enumerated in lexical order, skipping ignored directories.
//	Each file becomes one module whose id is its dotted relative path.
//	Read and parse failures are logged and recorded in
//	BuildResult.FileErrors; the module is kept with empty symbol and import
//	data. Relative imports are resolved against the module's own id.
//
// Inputs:
//
//	ctx  - Checked between files. Cancellation discards the partial graph.
//	root - Project root. Made absolute before use.
//
// Outputs:
//
//	*BuildResult - Frozen graph, per-file errors, stats.
//	error        - ErrRootNotFound, ErrRootNotDirectory, ErrRootUnreadable,
//	               or the context error. Never returned for individual files.
func (b *Builder) Build(ctx context.Context, root string) (*BuildResult, error) {
	start := time.Now()

	abs, err := b.checkRoot(root)
	if err != nil {
		return nil, err
	}

	ctx, span := startBuildSpan(ctx, abs)
	defer span.End()

	state := &buildState{
		root:   abs,
		graph:  NewGraph(abs),
		result: &BuildResult{},
		logger: b.options.Logger.With(slog.String("root", abs)),
	}
	state.result.Graph = state.graph

	if b.options.RespectGitignore {
		state.gitignore = b.loadGitignore(abs, state.logger)
	}

	files, err := b.collectFiles(state)
	if err == nil {
		err = b.analyzeFiles(ctx, state, files)
	}

	state.result.Stats.ModulesCreated = state.graph.Len()
	state.result.Stats.DurationMilli = time.Since(start).Milliseconds()
	setBuildSpanResult(span, state.result.Stats, err)
	recordBuildMetrics(ctx, time.Since(start), state.result.Stats, err == nil)

	if err != nil {
		return nil, err
	}

	state.graph.Freeze()
	state.logger.Debug("graph built",
		slog.Int("modules", state.result.Stats.ModulesCreated),
		slog.Int("files_failed", state.result.Stats.FilesFailed),
		slog.Int64("duration_ms", state.result.Stats.DurationMilli),
	)
	return state.result, nil
}

func (b *Builder) checkRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, abs)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRootUnreadable, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootNotDirectory, abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRootUnreadable, abs, err)
	}
	return abs, nil
}

func (b *Builder) loadGitignore(root string, logger *slog.Logger) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		logger.Warn("failed to compile .gitignore", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	return gi
}

// collectFiles returns root-relative slash paths of parseable files in
// lexical order.
func (b *Builder) collectFiles(state *buildState) ([]string, error) {
	var files []string

	err := filepath.WalkDir(state.root, func(path string, d fs.DirEntry, walkErr error) error {
		if path == state.root {
			return walkErr
		}
		rel, err := filepath.Rel(state.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			state.logger.Warn("skipping unreadable path", slog.String("path", rel), slog.String("error", walkErr.Error()))
			state.result.FileErrors = append(state.result.FileErrors, FileError{FilePath: rel, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if b.ignored[d.Name()] || b.excluded(state, rel, true) {
				state.result.Stats.DirsSkipped++
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := b.options.Registry.GetByExtension(filepath.Ext(rel)); !ok {
			return nil
		}
		if b.excluded(state, rel, false) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootUnreadable, state.root, err)
	}
	return files, nil
}

func (b *Builder) excluded(state *buildState, rel string, isDir bool) bool {
	if state.gitignore != nil {
		candidate := rel
		if isDir {
			candidate += "/"
		}
		if state.gitignore.MatchesPath(candidate) {
			return true
		}
	}
	for _, pattern := range b.options.ExcludeGlobs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (b *Builder) analyzeFiles(ctx context.Context, state *buildState, files []string) error {
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		state.result.Stats.FilesScanned++

		id := ModuleID(rel)
		src := ModuleSource{
			ID:       id,
			FilePath: filepath.Join(state.root, filepath.FromSlash(rel)),
			RelPath:  rel,
		}

		if parsed, err := b.parseFile(ctx, src.FilePath, rel); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			state.result.Stats.FilesFailed++
			state.result.FileErrors = append(state.result.FileErrors, FileError{FilePath: rel, Err: err})
			state.logger.Warn("analysis failed, keeping empty module",
				slog.String("path", rel),
				slog.String("error", err.Error()),
			)
		} else {
			src.Symbols = parsed.Symbols
			src.Calls = parsed.Calls
			src.Docstring = parsed.Docstring
			src.Complexity = parsed.Complexity
			src.Imports = resolveImports(id, parsed.Imports)
		}

		if err := state.graph.AddModule(NewModule(src)); err != nil {
			state.result.FileErrors = append(state.result.FileErrors, FileError{FilePath: rel, Err: err})
			state.logger.Warn("module not added",
				slog.String("path", rel),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (b *Builder) parseFile(ctx context.Context, absPath, rel string) (*ast.ParseResult, error) {
	parser, ok := b.options.Registry.GetByExtension(filepath.Ext(rel))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ast.ErrUnsupportedLanguage, filepath.Ext(rel))
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	return parser.Parse(ctx, content, rel)
}

func resolveImports(id string, imports []ast.Import) []string {
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		if resolved := ResolveImport(id, imp); resolved != "" {
			out = append(out, resolved)
		}
	}
	return out
}
