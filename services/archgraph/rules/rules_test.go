// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hami0095/ai-architecture/services/archgraph/ast"
	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

func buildGraph(t *testing.T, srcs ...graph.ModuleSource) *graph.Graph {
	t.Helper()
	g, err := graph.FromSources("/project", srcs...)
	require.NoError(t, err)
	return g
}

// =============================================================================
// Layered policy
// =============================================================================

func TestLayeredRule_CoreToInfrastructureAllowed(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "pkg.infrastructure.cache"},
		graph.ModuleSource{ID: "pkg.core.engine", Imports: []string{"pkg.infrastructure.cache"}},
	)

	cache, _ := g.Module("pkg.infrastructure.cache")
	engine, _ := g.Module("pkg.core.engine")
	assert.Equal(t, graph.OwnershipInfrastructure, cache.Ownership())
	assert.Equal(t, graph.OwnershipCore, engine.Ownership())

	assert.Empty(t, NewLayeredRule(nil).Validate(g))
}

func TestLayeredRule_DataToInterfaceViolates(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "pkg.data.models", Imports: []string{"pkg.interface.api"}},
		graph.ModuleSource{ID: "pkg.interface.api"},
	)

	violations := NewLayeredRule(nil).Validate(g)
	require.Len(t, violations, 1)
	assert.Equal(t, Violation{
		Rule:     LayeredRuleName,
		Severity: SeverityCritical,
		Message:  "Layer Violation: pkg.data.models (Data) calls UP to pkg.interface.api (Interface)",
	}, violations[0])
}

// layerPaths gives a file path (and classes) that infers each layer.
var layerPaths = map[graph.Ownership]struct {
	rel     string
	classes []string
}{
	graph.OwnershipInfrastructure: {"infrastructure/mod.py", nil},
	graph.OwnershipCore:           {"core/mod.py", nil},
	graph.OwnershipInterface:      {"interface/mod.py", nil},
	graph.OwnershipData:           {"data/mod.py", nil},
	graph.OwnershipAbstractions:   {"shapes/mod.py", []string{"BaseShape"}},
	graph.OwnershipInternal:       {"util/mod.py", nil},
	graph.OwnershipTest:           {"tests/mod.py", nil},
}

func layerSource(id string, o graph.Ownership, imports ...string) graph.ModuleSource {
	lp := layerPaths[o]
	var syms []ast.Symbol
	for _, c := range lp.classes {
		syms = append(syms, ast.Symbol{Name: c, Kind: ast.SymbolKindClass})
	}
	return graph.ModuleSource{ID: id, RelPath: lp.rel, Symbols: syms, Imports: imports}
}

func TestLayeredRule_Soundness(t *testing.T) {
	table := DefaultAllowedDownward()
	rule := NewLayeredRule(nil)

	for _, from := range graph.AllOwnerships() {
		for _, to := range graph.AllOwnerships() {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				g := buildGraph(t,
					layerSource("src", from, "dst"),
					layerSource("dst", to),
				)
				src, _ := g.Module("src")
				dst, _ := g.Module("dst")
				require.Equal(t, from, src.Ownership())
				require.Equal(t, to, dst.Ownership())

				inTable := false
				for _, o := range table[from] {
					if o == to {
						inTable = true
					}
				}
				wantViolation := from != to && !inTable
				assert.Equal(t, wantViolation, len(rule.Validate(g)) == 1)
			})
		}
	}
}

func TestAllowedDownward_BidirectionalRelaxations(t *testing.T) {
	a := DefaultAllowedDownward()
	assert.True(t, a.Allows(graph.OwnershipCore, graph.OwnershipInfrastructure))
	assert.True(t, a.Allows(graph.OwnershipInfrastructure, graph.OwnershipCore))
	assert.True(t, a.Allows(graph.OwnershipData, graph.OwnershipInfrastructure))
	assert.True(t, a.Allows(graph.OwnershipInfrastructure, graph.OwnershipData))
	assert.False(t, a.Allows(graph.OwnershipCore, graph.OwnershipInterface))
	assert.False(t, a.Allows(graph.OwnershipInterface, graph.OwnershipTest))
	assert.True(t, a.Allows(graph.OwnershipTest, graph.OwnershipTest))
}

func TestLayeredRule_CustomTable(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "pkg.core.engine", Imports: []string{"pkg.infrastructure.cache"}},
		graph.ModuleSource{ID: "pkg.infrastructure.cache"},
	)
	strict := NewLayeredRule(AllowedDownward{})
	assert.Len(t, strict.Validate(g), 1)
}

// =============================================================================
// Cycles
// =============================================================================

func TestCycleRule_TwoModuleCycle(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "pkg.a", Imports: []string{"pkg.b"}},
		graph.ModuleSource{ID: "pkg.b", Imports: []string{"pkg.a"}},
	)

	violations := NewCycleRule().Validate(g)
	require.Len(t, violations, 1)
	assert.Equal(t, CycleRuleName, violations[0].Rule)
	assert.Equal(t, SeverityCritical, violations[0].Severity)
	assert.Equal(t, "Cyclic dependency detected: pkg.a -> pkg.b -> pkg.a", violations[0].Message)
	assert.Contains(t, violations[0].Message, "pkg.a")
	assert.Contains(t, violations[0].Message, "pkg.b")
}

func TestCycleRule_Acyclic(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "a", Imports: []string{"b", "c"}},
		graph.ModuleSource{ID: "b", Imports: []string{"d"}},
		graph.ModuleSource{ID: "c", Imports: []string{"d"}},
		graph.ModuleSource{ID: "d"},
	)
	assert.Empty(t, NewCycleRule().Validate(g))
}

func TestCycleRule_SelfImport(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "pkg.a", Imports: []string{"pkg.a"}},
		graph.ModuleSource{ID: "pkg.b", Imports: []string{"pkg.b.helpers"}},
		graph.ModuleSource{ID: "pkg.c"},
	)
	assert.Empty(t, g.Edges())

	assert.Equal(t, [][]string{{"pkg.a", "pkg.a"}, {"pkg.b", "pkg.b"}}, FindCycles(g))
	violations := NewCycleRule().Validate(g)
	require.Len(t, violations, 2)
	assert.Equal(t, "Cyclic dependency detected: pkg.a -> pkg.a", violations[0].Message)
}

func TestFindCycles_OnePerSearchRoot(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "a", Imports: []string{"b"}},
		graph.ModuleSource{ID: "b", Imports: []string{"c"}},
		graph.ModuleSource{ID: "c", Imports: []string{"a"}},
		graph.ModuleSource{ID: "x", Imports: []string{"y"}},
		graph.ModuleSource{ID: "y", Imports: []string{"x"}},
	)
	assert.Equal(t, [][]string{
		{"a", "b", "c", "a"},
		{"x", "y", "x"},
	}, FindCycles(g))
}

func TestFindCycles_CycleBelowStart(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "a", Imports: []string{"b"}},
		graph.ModuleSource{ID: "b", Imports: []string{"c"}},
		graph.ModuleSource{ID: "c", Imports: []string{"b"}},
	)
	assert.Equal(t, [][]string{{"b", "c", "b"}}, FindCycles(g))
}

// hasClosedWalk checks for a cycle by transitive closure.
func hasClosedWalk(g *graph.Graph) bool {
	ids := g.ModuleIDs()
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	n := len(ids)
	reach := make([][]bool, n)
	for i := range reach {
		reach[i] = make([]bool, n)
	}
	for _, e := range g.Edges() {
		reach[idx[e.From]][idx[e.To]] = true
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if reach[i][k] && reach[k][j] {
					reach[i][j] = true
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		if reach[i][i] {
			return true
		}
	}
	return false
}

func TestCycleRule_Soundness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(6)
		srcs := make([]graph.ModuleSource, n)
		for i := range srcs {
			srcs[i].ID = fmt.Sprintf("m%d", i)
			for j := 0; j < n; j++ {
				if i != j && rng.Intn(4) == 0 {
					srcs[i].Imports = append(srcs[i].Imports, fmt.Sprintf("m%d", j))
				}
			}
		}
		g := buildGraph(t, srcs...)

		got := NewCycleRule().Validate(g)
		assert.Equal(t, hasClosedWalk(g), len(got) > 0, "round %d: edges %v", round, g.Edges())

		for _, cycle := range FindCycles(g) {
			require.GreaterOrEqual(t, len(cycle), 3)
			assert.Equal(t, cycle[0], cycle[len(cycle)-1])
		}
	}
}

// =============================================================================
// Forbidden dependencies
// =============================================================================

func TestForbiddenDependencyRule(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "app.api.v1.users", Imports: []string{"app.legacy.db"}},
		graph.ModuleSource{ID: "app.jobs.sync", Imports: []string{"app.legacy.db"}},
		graph.ModuleSource{ID: "app.legacy.db"},
	)

	rule, err := NewForbiddenDependencyRule("No legacy in API", "app/api/**", "**/legacy/**", SeverityWarning)
	require.NoError(t, err)

	violations := rule.Validate(g)
	require.Len(t, violations, 1)
	assert.Equal(t, Violation{
		Rule:     "No legacy in API",
		Severity: SeverityWarning,
		Message:  "Forbidden Dependency: app.api.v1.users must not import app.legacy.db",
	}, violations[0])
}

func TestNewForbiddenDependencyRule_Validation(t *testing.T) {
	_, err := NewForbiddenDependencyRule("bad", "[oops", "x", "")
	assert.True(t, errors.Is(err, ErrInvalidPattern))

	_, err = NewForbiddenDependencyRule("empty", "", "x", "")
	assert.True(t, errors.Is(err, ErrInvalidPattern))

	r, err := NewForbiddenDependencyRule("", "a/**", "b/**", "")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, r.Severity())
	assert.Equal(t, "Forbidden a/** -> b/**", r.Name())
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("warning")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, s)

	_, err = ParseSeverity("fatal")
	assert.Error(t, err)
}

// =============================================================================
// Validator
// =============================================================================

func TestValidator_Report(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "pkg.a", Imports: []string{"pkg.b"}},
		graph.ModuleSource{ID: "pkg.b", Imports: []string{"pkg.a"}},
		graph.ModuleSource{ID: "pkg.data.models", Imports: []string{"pkg.interface.api"}},
		graph.ModuleSource{ID: "pkg.interface.api"},
	)

	report := DefaultValidator().Validate(context.Background(), g)
	assert.False(t, report.Success)
	require.Len(t, report.Violations, 2)
	assert.Equal(t, CycleRuleName, report.Violations[0].Rule)
	assert.Equal(t, LayeredRuleName, report.Violations[1].Rule)
	assert.Equal(t, 2, report.CriticalCount())
	assert.Equal(t, map[string]int{"Internal": 2, "Data": 1, "Interface": 1}, report.ProjectStats)
}

func TestValidator_WarningsDoNotFail(t *testing.T) {
	g := buildGraph(t,
		graph.ModuleSource{ID: "app.api.views", Imports: []string{"app.util"}},
		graph.ModuleSource{ID: "app.util"},
	)
	rule, err := NewForbiddenDependencyRule("soft", "app/api/**", "app/util", SeverityInfo)
	require.NoError(t, err)

	v := DefaultValidator()
	v.AddRule(rule)
	assert.Len(t, v.Rules(), 3)

	report := v.Validate(context.Background(), g)
	assert.True(t, report.Success)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, SeverityInfo, report.Violations[0].Severity)
}

func TestValidator_EmptyGraph(t *testing.T) {
	report := DefaultValidator().Validate(context.Background(), buildGraph(t))
	assert.True(t, report.Success)
	assert.NotNil(t, report.Violations)
	assert.Empty(t, report.Violations)
}
