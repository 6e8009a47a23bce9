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
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hami0095/ai-architecture/services/archgraph/ast"
)

// =============================================================================
// Ownership
// =============================================================================

// Ownership is the architectural layer a module belongs to.
type Ownership int

const (
	// OwnershipUnknown is the zero value. Modules built by NewModule never
	// carry it; it appears only for unrecognized names passed to ParseOwnership.
	OwnershipUnknown Ownership = iota
	OwnershipInfrastructure
	OwnershipCore
	OwnershipInterface
	OwnershipData
	OwnershipAbstractions
	OwnershipInternal
	OwnershipTest
)

var ownershipNames = [...]string{
	OwnershipUnknown:        "Unknown",
	OwnershipInfrastructure: "Infrastructure",
	OwnershipCore:           "Core",
	OwnershipInterface:      "Interface",
	OwnershipData:           "Data",
	OwnershipAbstractions:   "Abstractions",
	OwnershipInternal:       "Internal",
	OwnershipTest:           "Test",
}

// String returns the layer name, e.g. "Infrastructure".
func (o Ownership) String() string {
	if o < 0 || int(o) >= len(ownershipNames) {
		return ownershipNames[OwnershipUnknown]
	}
	return ownershipNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Ownership) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Ownership) UnmarshalText(text []byte) error {
	parsed, ok := ParseOwnership(string(text))
	if !ok {
		return fmt.Errorf("unknown ownership %q", text)
	}
	*o = parsed
	return nil
}

// ParseOwnership parses a layer name case-insensitively.
func ParseOwnership(s string) (Ownership, bool) {
	for i, name := range ownershipNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Ownership(i), true
		}
	}
	return OwnershipUnknown, false
}

// AllOwnerships returns every layer except Unknown in declaration order.
func AllOwnerships() []Ownership {
	return []Ownership{
		OwnershipInfrastructure,
		OwnershipCore,
		OwnershipInterface,
		OwnershipData,
		OwnershipAbstractions,
		OwnershipInternal,
		OwnershipTest,
	}
}

// =============================================================================
// Module
// =============================================================================

// Metrics are the per-module structural and historical measurements.
type Metrics struct {
	FanIn           int `json:"fan_in"`
	FanOut          int `json:"fan_out"`
	DependencyDepth int `json:"dependency_depth"`
	Churn           int `json:"churn"`
}

// ModuleSource is the input to NewModule.
type ModuleSource struct {
	// ID is the dotted module id, e.g. "pkg.core.engine".
	ID string

	// FilePath is the absolute path of the source file.
	FilePath string

	// RelPath is the slash-separated path relative to the project root.
	RelPath string

	// Symbols are the declared classes, functions, and methods in order.
	Symbols []ast.Symbol

	// Calls maps a declared symbol to its raw call texts.
	Calls map[string][]string

	// Imports are absolute module names, already resolved.
	Imports []string

	// Docstring is the module docstring.
	Docstring string

	// Complexity is the front-end's decision-point count.
	Complexity int
}

// Module is one analyzed source file.
//
// Data fields are exported for reading. Ownership is computed once in
// NewModule and cannot be changed; metrics are written once by
// ComputeMetrics.
type Module struct {
	ID         string
	FilePath   string
	RelPath    string
	Symbols    []ast.Symbol
	Calls      map[string][]string
	Imports    []string
	Docstring  string
	Complexity int

	ownership Ownership
	metrics   atomic.Pointer[Metrics]
}

// NewModule creates a module and infers its ownership from RelPath and the
// declared class names.
func NewModule(src ModuleSource) *Module {
	calls := src.Calls
	if calls == nil {
		calls = make(map[string][]string)
	}
	m := &Module{
		ID:         src.ID,
		FilePath:   src.FilePath,
		RelPath:    src.RelPath,
		Symbols:    src.Symbols,
		Calls:      calls,
		Imports:    src.Imports,
		Docstring:  src.Docstring,
		Complexity: src.Complexity,
	}
	m.ownership = InferOwnership(src.RelPath, m.Classes())
	return m
}

// Ownership returns the module's layer.
func (m *Module) Ownership() Ownership {
	return m.ownership
}

// Metrics returns the computed metrics, or false before ComputeMetrics.
// Safe to call while ComputeMetrics runs.
func (m *Module) Metrics() (Metrics, bool) {
	p := m.metrics.Load()
	if p == nil {
		return Metrics{}, false
	}
	return *p, true
}

// SymbolNames returns declared symbol names in order.
func (m *Module) SymbolNames() []string {
	names := make([]string, len(m.Symbols))
	for i, s := range m.Symbols {
		names[i] = s.Name
	}
	return names
}

// Classes returns declared class names in order.
func (m *Module) Classes() []string {
	var classes []string
	for _, s := range m.Symbols {
		if s.Kind == ast.SymbolKindClass {
			classes = append(classes, s.Name)
		}
	}
	return classes
}

// Declares reports whether the module declares name, either exactly
// ("Class.method") or as the trailing segment of a method ("method").
func (m *Module) Declares(name string) bool {
	for _, s := range m.Symbols {
		if s.Name == name || strings.HasSuffix(s.Name, "."+name) {
			return true
		}
	}
	return false
}

// =============================================================================
// Graph
// =============================================================================

// GraphState is the lifecycle state of a Graph.
type GraphState int

const (
	// GraphStateBuilding accepts AddModule calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly is set by Freeze.
	GraphStateReadOnly
)

// String returns "building" or "readonly".
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return fmt.Sprintf("GraphState(%d)", s)
	}
}

// Edge is a derived import edge between two distinct modules.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the module map for one project root.
//
// Thread Safety: single writer while building, concurrent readers after Freeze.
// Module metrics may be read while ComputeMetrics runs.
type Graph struct {
	// Root is the absolute project root.
	Root string

	// BuiltAtMilli is the Unix time in milliseconds when Freeze was called.
	BuiltAtMilli int64

	modules map[string]*Module
	ids     []string
	state   GraphState

	metricsMu       sync.Mutex
	metricsComputed bool
}

// NewGraph creates an empty graph in the building state.
func NewGraph(root string) *Graph {
	return &Graph{
		Root:    root,
		modules: make(map[string]*Module),
		state:   GraphStateBuilding,
	}
}

// FromSources builds and freezes a graph from pre-parsed module data.
// RelPath defaults to the id in slash form plus ".py" when empty.
func FromSources(root string, srcs ...ModuleSource) (*Graph, error) {
	g := NewGraph(root)
	for _, src := range srcs {
		if src.RelPath == "" {
			src.RelPath = strings.ReplaceAll(src.ID, ".", "/") + ".py"
		}
		if err := g.AddModule(NewModule(src)); err != nil {
			return nil, err
		}
	}
	g.Freeze()
	return g, nil
}

// AddModule inserts m.
//
// Outputs:
//
//	error - ErrGraphFrozen, ErrInvalidModule, or ErrDuplicateModule.
func (g *Graph) AddModule(m *Module) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if m == nil || m.ID == "" {
		return ErrInvalidModule
	}
	if _, exists := g.modules[m.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.ID)
	}

	g.modules[m.ID] = m
	i := sort.SearchStrings(g.ids, m.ID)
	g.ids = append(g.ids, "")
	copy(g.ids[i+1:], g.ids[i:])
	g.ids[i] = m.ID
	return nil
}

// Freeze makes the graph read-only. Calling it twice is a no-op.
func (g *Graph) Freeze() {
	if g.state == GraphStateReadOnly {
		return
	}
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// IsFrozen reports whether Freeze has been called.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// State returns the lifecycle state.
func (g *Graph) State() GraphState {
	return g.state
}

// Len returns the number of modules.
func (g *Graph) Len() int {
	return len(g.modules)
}

// Module returns the module with id.
func (g *Graph) Module(id string) (*Module, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// ModuleIDs returns all module ids in sorted order. The slice is a copy.
func (g *Graph) ModuleIDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Modules returns all modules ordered by id.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, len(g.ids))
	for i, id := range g.ids {
		out[i] = g.modules[id]
	}
	return out
}

// ImportTargets returns the ids of other modules that id's imports match,
// sorted and deduplicated. Self-imports are excluded.
func (g *Graph) ImportTargets(id string) []string {
	m, ok := g.modules[id]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var targets []string
	for _, imp := range m.Imports {
		for _, t := range g.matchingModules(imp) {
			if t != id && !seen[t] {
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}
	sort.Strings(targets)
	return targets
}

// ImportsSelf reports whether one of id's imports matches id itself. Such
// an import is not an edge and never counts toward fan-in or fan-out, but
// it is a closed walk for cycle detection.
func (g *Graph) ImportsSelf(id string) bool {
	m, ok := g.modules[id]
	if !ok {
		return false
	}
	for _, imp := range m.Imports {
		if ImportMatches(imp, id) {
			return true
		}
	}
	return false
}

// Importers returns the ids of other modules with an import matching id,
// sorted.
func (g *Graph) Importers(id string) []string {
	if _, ok := g.modules[id]; !ok {
		return nil
	}
	var importers []string
	for _, other := range g.ids {
		if other == id {
			continue
		}
		for _, imp := range g.modules[other].Imports {
			if ImportMatches(imp, id) {
				importers = append(importers, other)
				break
			}
		}
	}
	return importers
}

// Edges returns every derived import edge, sorted by (From, To).
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, id := range g.ids {
		for _, to := range g.ImportTargets(id) {
			edges = append(edges, Edge{From: id, To: to})
		}
	}
	return edges
}

// LayerStats counts modules per ownership layer.
func (g *Graph) LayerStats() map[Ownership]int {
	stats := make(map[Ownership]int)
	for _, m := range g.modules {
		stats[m.ownership]++
	}
	return stats
}

// matchingModules returns every module id that imp matches. A module id
// matches when it is a dot-boundary prefix of imp, so only those prefixes
// need a lookup.
func (g *Graph) matchingModules(imp string) []string {
	if imp == "" {
		return nil
	}
	var out []string
	for i := 0; i <= len(imp); i++ {
		if i == len(imp) || imp[i] == '.' {
			if _, ok := g.modules[imp[:i]]; ok {
				out = append(out, imp[:i])
			}
		}
	}
	return out
}
