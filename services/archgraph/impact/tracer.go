// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package impact answers reachability questions over a frozen graph.
//
// ImpactScope walks call references backwards: who calls the target, who
// calls those callers, and so on up to a depth bound. Matching is lexical;
// a call text matches a key when the two are equal or one ends with the
// other behind a dot. DependencyScope walks import edges forwards.
//
// A Tracer never mutates its graph and is safe for concurrent use.
package impact

import (
	"context"
	"strings"
	"time"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// ModuleImportPrefix prefixes entries produced by an import of the target
// rather than a call to it.
const ModuleImportPrefix = "Module Import: "

// DefaultMaxDepth is the bound used by callers that do not choose one.
const DefaultMaxDepth = 3

// Entry is one impacted symbol or module.
type Entry struct {
	// Name is "module.symbol", "Module Import: module", or a module id for
	// dependency scopes.
	Name string `json:"name"`

	// Depth is the shallowest distance from the target, starting at 1.
	Depth int `json:"depth"`

	// File is the root-relative path of the module holding Name.
	File string `json:"file"`
}

// Scope is the result of a reachability query.
//
// Found distinguishes "no such symbol" from "found, zero impact": a known
// target with no callers has Found true and no Entries.
type Scope struct {
	Target  string  `json:"target"`
	Found   bool    `json:"found"`
	Entries []Entry `json:"entries"`
}

// Names returns entry names in order.
func (s Scope) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Name
	}
	return names
}

// Tracer runs reachability queries against one graph.
type Tracer struct {
	g *graph.Graph
}

// NewTracer creates a Tracer for g.
func NewTracer(g *graph.Graph) *Tracer {
	return &Tracer{g: g}
}

// CallMatches reports whether a raw call text refers to key.
func CallMatches(call, key string) bool {
	if call == "" || key == "" {
		return false
	}
	return call == key ||
		strings.HasSuffix(key, "."+call) ||
		strings.HasSuffix(call, "."+key)
}

// BareName returns the trailing dotted segment of target.
func BareName(target string) string {
	target = strings.TrimSpace(target)
	if i := strings.LastIndexByte(target, '.'); i >= 0 {
		return target[i+1:]
	}
	return target
}

// ImpactScope returns everything that transitively calls or imports target.
//
// Description:
//
//	The search key starts as the bare trailing segment of target. Each
//	declared symbol whose raw calls match the key is recorded as
//	"module.symbol" and becomes the next key one level deeper. Entries are
//	deduplicated by name and keep the shallowest depth at which they were
//	reached; a name reached again at a shallower depth is expanded again,
//	so raising maxDepth can only add entries.
//
//	Modules with an import matching the original target, by the call rule
//	or the module prefix rule, are appended as "Module Import: <id>" at
//	depth 1.
//
// Inputs:
//
//	ctx      - Used for tracing only; the walk is not interruptible.
//	target   - Bare or qualified symbol name, or a module id.
//	maxDepth - Inclusive bound. Values below 1 yield no entries.
//
// Outputs:
//
//	Scope - Entries in discovery order.
func (t *Tracer) ImpactScope(ctx context.Context, target string, maxDepth int) Scope {
	start := time.Now()
	ctx, span := startScopeSpan(ctx, "ImpactScope", target, maxDepth)
	defer span.End()

	target = strings.TrimSpace(target)
	key := BareName(target)
	scope := Scope{
		Target:  target,
		Found:   t.declared(target, key),
		Entries: []Entry{},
	}

	if key != "" && maxDepth >= 1 {
		w := &callWalk{g: t.g, maxDepth: maxDepth, index: make(map[string]int)}
		w.visit(key, 1)
		scope.Entries = append(scope.Entries, w.entries...)
		scope.Entries = append(scope.Entries, t.importHits(target)...)
	}

	setScopeSpanResult(span, scope)
	recordQueryMetrics(ctx, "backward", time.Since(start), scope)
	return scope
}

// DependencyScope returns the modules reachable from moduleID over import
// edges, each at its shortest distance, in breadth-first order.
func (t *Tracer) DependencyScope(ctx context.Context, moduleID string, maxDepth int) Scope {
	start := time.Now()
	ctx, span := startScopeSpan(ctx, "DependencyScope", moduleID, maxDepth)
	defer span.End()

	_, found := t.g.Module(moduleID)
	scope := Scope{Target: moduleID, Found: found, Entries: []Entry{}}

	if found {
		seen := map[string]bool{moduleID: true}
		frontier := []string{moduleID}
		for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
			var next []string
			for _, id := range frontier {
				for _, to := range t.g.ImportTargets(id) {
					if seen[to] {
						continue
					}
					seen[to] = true
					m, _ := t.g.Module(to)
					scope.Entries = append(scope.Entries, Entry{Name: to, Depth: depth, File: m.RelPath})
					next = append(next, to)
				}
			}
			frontier = next
		}
	}

	setScopeSpanResult(span, scope)
	recordQueryMetrics(ctx, "forward", time.Since(start), scope)
	return scope
}

func (t *Tracer) declared(target, key string) bool {
	if target == "" {
		return false
	}
	if _, ok := t.g.Module(target); ok {
		return true
	}
	for _, m := range t.g.Modules() {
		if m.Declares(key) || m.Declares(target) {
			return true
		}
	}
	return false
}

func (t *Tracer) importHits(target string) []Entry {
	var hits []Entry
	for _, m := range t.g.Modules() {
		for _, imp := range m.Imports {
			if CallMatches(imp, target) || graph.ImportMatches(imp, target) {
				hits = append(hits, Entry{Name: ModuleImportPrefix + m.ID, Depth: 1, File: m.RelPath})
				break
			}
		}
	}
	return hits
}

// callWalk holds the state of one ImpactScope query.
type callWalk struct {
	g        *graph.Graph
	maxDepth int
	entries  []Entry
	index    map[string]int
}

func (w *callWalk) visit(key string, depth int) {
	if depth > w.maxDepth {
		return
	}
	for _, m := range w.g.Modules() {
		for _, sym := range m.Symbols {
			if !anyMatch(m.Calls[sym.Name], key) {
				continue
			}
			name := m.ID + "." + sym.Name
			if i, ok := w.index[name]; ok {
				if w.entries[i].Depth <= depth {
					continue
				}
				w.entries[i].Depth = depth
			} else {
				w.index[name] = len(w.entries)
				w.entries = append(w.entries, Entry{Name: name, Depth: depth, File: m.RelPath})
			}
			w.visit(name, depth+1)
		}
	}
}

func anyMatch(calls []string, key string) bool {
	for _, c := range calls {
		if CallMatches(c, key) {
			return true
		}
	}
	return false
}
