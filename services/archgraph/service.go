// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archgraph is the entry point of the architecture graph engine.
//
// An Analyzer builds one frozen graph per AnalyzeProject call, computes its
// metrics, and hands back an Analysis that answers summary, impact, symbol
// metric, and validation queries. Nothing is shared between analyses except
// the scan cache and the per-root git churn sources. The package also exposes the engine over HTTP.
package archgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Hami0095/ai-architecture/services/archgraph/churn"
	"github.com/Hami0095/ai-architecture/services/archgraph/config"
	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
	"github.com/Hami0095/ai-architecture/services/archgraph/impact"
	"github.com/Hami0095/ai-architecture/services/archgraph/rules"
	"github.com/Hami0095/ai-architecture/services/archgraph/scan"
	"github.com/Hami0095/ai-architecture/services/archgraph/storage/badger"
)

// ServiceVersion is reported by the health endpoint and the CLI.
const ServiceVersion = "0.3.0"

// gitSourceCacheSize bounds how many project roots keep a git churn source.
const gitSourceCacheSize = 64

var (
	// ErrRelativePath is returned when a root must be absolute but is not.
	ErrRelativePath = errors.New("project root must be an absolute path")

	// ErrRootNotAllowed is returned when a root is outside AllowedRoots.
	ErrRootNotAllowed = errors.New("project root is not under an allowed root")

	// ErrEmptyTarget is returned by impact queries without a target.
	ErrEmptyTarget = errors.New("impact target is empty")
)

// Analyzer runs analyses. It is safe for concurrent use; each call works
// on its own graph.
type Analyzer struct {
	builder      *graph.Builder
	validator    *rules.Validator
	churn        graph.ChurnSource
	gitChurn     bool
	churnOpts    []churn.Option
	gitMu        sync.Mutex
	gitSources   *lru.Cache[string, *churn.GitChurn]
	scanner      *scan.Scanner
	impactDepth  int
	allowedRoots []string
	maxDuration  time.Duration
	logger       *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBuilder replaces the default graph builder.
func WithBuilder(b *graph.Builder) Option {
	return func(a *Analyzer) { a.builder = b }
}

// WithValidator replaces the default cycle + layering validator.
func WithValidator(v *rules.Validator) Option {
	return func(a *Analyzer) { a.validator = v }
}

// WithChurnSource uses src for every analysis and disables git churn.
func WithChurnSource(src graph.ChurnSource) Option {
	return func(a *Analyzer) {
		a.churn = src
		a.gitChurn = false
	}
}

// WithGitChurn enables per-root git churn. opts are passed to
// churn.NewGitChurn the first time a root is analyzed; later analyses of
// the same root reuse that source and its cache.
func WithGitChurn(opts ...churn.Option) Option {
	return func(a *Analyzer) {
		a.churn = nil
		a.gitChurn = true
		a.churnOpts = opts
	}
}

// WithScanner sets the raw-text scanner.
func WithScanner(s *scan.Scanner) Option {
	return func(a *Analyzer) { a.scanner = s }
}

// WithImpactDepth sets the default impact bound.
func WithImpactDepth(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.impactDepth = n
		}
	}
}

// WithAllowedRoots restricts AnalyzeProject to roots under one of prefixes.
func WithAllowedRoots(prefixes ...string) Option {
	return func(a *Analyzer) { a.allowedRoots = append(a.allowedRoots, prefixes...) }
}

// WithMaxDuration bounds each AnalyzeProject call.
func WithMaxDuration(d time.Duration) Option {
	return func(a *Analyzer) { a.maxDuration = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer. Without options it uses the default
// builder, the cycle and layering rules, no churn source, and an uncached
// scanner.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		impactDepth: impact.DefaultMaxDepth,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.builder == nil {
		a.builder = graph.NewBuilder(graph.WithLogger(a.logger))
	}
	if a.validator == nil {
		a.validator = rules.DefaultValidator()
	}
	if a.scanner == nil {
		a.scanner = scan.NewScanner(scan.WithLogger(a.logger))
	}
	if a.gitChurn {
		// Size is a positive constant, so New cannot fail.
		a.gitSources, _ = lru.New[string, *churn.GitChurn](gitSourceCacheSize)
	}
	return a
}

// gitChurnFor returns the git churn source of root, creating it on first
// use. Reusing it across analyses lets its per-file cache serve repeated
// analyses of the same tree.
func (a *Analyzer) gitChurnFor(root string) *churn.GitChurn {
	a.gitMu.Lock()
	defer a.gitMu.Unlock()
	if src, ok := a.gitSources.Get(root); ok {
		return src
	}
	src := churn.NewGitChurn(root, a.churnOpts...)
	a.gitSources.Add(root, src)
	return src
}

// NewAnalyzerFromConfig wires an Analyzer from configuration.
//
// Description:
//
//	warm is the optional badger tier of the scan cache; nil keeps scans in
//	memory. extra options are applied last.
//
// Outputs:
//
//	*Analyzer - Ready to use.
//	error     - An invalid policy entry.
func NewAnalyzerFromConfig(cfg *config.Config, warm *badger.DB, logger *slog.Logger, extra ...Option) (*Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validator, err := BuildValidator(cfg.Policy)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(
		graph.WithLogger(logger),
		graph.WithExtraIgnoreDirs(cfg.Analysis.IgnoreDirs...),
		graph.WithExcludeGlobs(cfg.Analysis.Exclude...),
		graph.WithGitignore(cfg.Analysis.RespectGitignore),
	)
	cache := scan.NewTieredCache(cfg.Cache.LRUSize, cfg.Cache.TTL, warm, logger)
	scanner := scan.NewScanner(scan.WithCache(cache), scan.WithTTL(cfg.Cache.TTL), scan.WithLogger(logger))

	opts := []Option{
		WithLogger(logger),
		WithBuilder(builder),
		WithValidator(validator),
		WithScanner(scanner),
		WithImpactDepth(cfg.Analysis.ImpactDepth),
	}
	if cfg.Analysis.Churn {
		var churnOpts []churn.Option
		if cfg.Analysis.ChurnTimeout > 0 {
			churnOpts = append(churnOpts, churn.WithTimeout(cfg.Analysis.ChurnTimeout))
		}
		opts = append(opts, WithGitChurn(churnOpts...))
	}
	return NewAnalyzer(append(opts, extra...)...), nil
}

// BuildValidator creates the rule set selected by a policy.
func BuildValidator(p config.PolicyConfig) (*rules.Validator, error) {
	v := rules.NewValidator()
	if p.Cycles {
		v.AddRule(rules.NewCycleRule())
	}
	if p.Layering {
		v.AddRule(rules.NewLayeredRule(nil))
	}
	for i, f := range p.Forbidden {
		var sev rules.Severity
		if f.Severity != "" {
			s, err := rules.ParseSeverity(f.Severity)
			if err != nil {
				return nil, fmt.Errorf("policy.forbidden[%d]: %w", i, err)
			}
			sev = s
		}
		r, err := rules.NewForbiddenDependencyRule(f.Name, f.From, f.To, sev)
		if err != nil {
			return nil, fmt.Errorf("policy.forbidden[%d]: %w", i, err)
		}
		v.AddRule(r)
	}
	return v, nil
}

// ImpactDepth returns the default impact bound.
func (a *Analyzer) ImpactDepth() int { return a.impactDepth }

// Analysis is one built graph with its metrics computed.
type Analysis struct {
	// ID identifies the analysis in logs and responses.
	ID string

	// Result holds the frozen graph, per-file errors, and build stats.
	Result *graph.BuildResult

	validator *rules.Validator
	tracer    *impact.Tracer
}

// Graph returns the analyzed graph.
func (an *Analysis) Graph() *graph.Graph { return an.Result.Graph }

// AnalyzeProject builds the graph for root and computes its metrics.
//
// Description:
//
//	Per-file failures are recorded in Result.FileErrors and logged; they
//	never fail the call. Churn comes from the configured source, from git
//	in root when WithGitChurn is set, or defaults to 1.
//
// Outputs:
//
//	*Analysis - Ready for queries.
//	error     - ErrRootNotAllowed, graph.ErrRootNotFound,
//	            graph.ErrRootNotDirectory, graph.ErrRootUnreadable, or the
//	            context error.
func (a *Analyzer) AnalyzeProject(ctx context.Context, root string) (*Analysis, error) {
	if err := a.checkAllowed(root); err != nil {
		return nil, err
	}
	if a.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.maxDuration)
		defer cancel()
	}

	id := uuid.NewString()
	logger := a.logger.With(slog.String("analysis_id", id))

	result, err := a.builder.Build(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, fe := range result.FileErrors {
		logger.Warn("file degraded", slog.String("path", fe.FilePath), slog.String("error", fe.Err.Error()))
	}

	src := a.churn
	if a.gitChurn {
		src = a.gitChurnFor(result.Graph.Root)
	}
	if err := graph.ComputeMetrics(ctx, result.Graph, src); err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}

	logger.Info("analysis complete",
		slog.String("root", result.Graph.Root),
		slog.Int("modules", result.Stats.ModulesCreated),
		slog.Int("files_failed", result.Stats.FilesFailed),
	)
	return &Analysis{
		ID:        id,
		Result:    result,
		validator: a.validator,
		tracer:    impact.NewTracer(result.Graph),
	}, nil
}

// Scan renders the raw-text scan of root. maxDepth <= 0 uses the scanner
// default.
func (a *Analyzer) Scan(ctx context.Context, root string, maxDepth int) (string, error) {
	if err := a.checkAllowed(root); err != nil {
		return "", err
	}
	return a.scanner.Scan(ctx, root, maxDepth)
}

func (a *Analyzer) checkAllowed(root string) error {
	if len(a.allowedRoots) == 0 {
		return nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRootNotAllowed, root)
	}
	for _, prefix := range a.allowedRoots {
		p := filepath.Clean(prefix)
		if abs == p || strings.HasPrefix(abs, p+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRootNotAllowed, abs)
}

// Summary returns the serializable graph summary.
func (an *Analysis) Summary() graph.GraphSummary {
	return graph.Summarize(an.Result.Graph)
}

// Impact returns the backward impact scope of target.
func (an *Analysis) Impact(ctx context.Context, target string, maxDepth int) impact.Scope {
	return an.tracer.ImpactScope(ctx, target, maxDepth)
}

// Dependencies returns the modules moduleID transitively imports.
func (an *Analysis) Dependencies(ctx context.Context, moduleID string, maxDepth int) impact.Scope {
	return an.tracer.DependencyScope(ctx, moduleID, maxDepth)
}

// SymbolMetrics looks up a module, class, or function.
func (an *Analysis) SymbolMetrics(query string) (graph.SymbolMetrics, bool) {
	return graph.FindSymbolMetrics(an.Result.Graph, query)
}

// Validate runs the analyzer's rules.
func (an *Analysis) Validate(ctx context.Context) rules.ValidationReport {
	return an.validator.Validate(ctx, an.Result.Graph)
}

// PatchImpact is the impact of one module touched by a patch.
type PatchImpact struct {
	Change impact.Change  `json:"change"`
	Scopes []impact.Scope `json:"scopes"`
}

// PatchImpact traces impact for every symbol a unified diff touches. A
// module with only module-level changes is traced by its id, which yields
// its importers.
func (an *Analysis) PatchImpact(ctx context.Context, patch []byte, maxDepth int) ([]PatchImpact, error) {
	changes, err := impact.ChangedModules(an.Result.Graph, patch)
	if err != nil {
		return nil, err
	}
	out := make([]PatchImpact, 0, len(changes))
	for _, c := range changes {
		pi := PatchImpact{Change: c}
		targets := make([]string, 0, len(c.Symbols))
		for _, s := range c.Symbols {
			targets = append(targets, c.Module+"."+s)
		}
		if len(targets) == 0 {
			targets = append(targets, c.Module)
		}
		for _, t := range targets {
			pi.Scopes = append(pi.Scopes, an.tracer.ImpactScope(ctx, t, maxDepth))
		}
		out = append(out, pi)
	}
	return out, nil
}
