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
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hami0095/ai-architecture/services/archgraph/ast"
)

func mustGraph(t *testing.T, srcs ...ModuleSource) *Graph {
	t.Helper()
	g, err := FromSources("/project", srcs...)
	require.NoError(t, err)
	return g
}

func TestOwnership_String(t *testing.T) {
	tests := []struct {
		o    Ownership
		want string
	}{
		{OwnershipInfrastructure, "Infrastructure"},
		{OwnershipCore, "Core"},
		{OwnershipInterface, "Interface"},
		{OwnershipData, "Data"},
		{OwnershipAbstractions, "Abstractions"},
		{OwnershipInternal, "Internal"},
		{OwnershipTest, "Test"},
		{OwnershipUnknown, "Unknown"},
		{Ownership(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Ownership(%d).String() = %q, want %q", tt.o, got, tt.want)
		}
	}
}

func TestOwnership_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Ownership{"m": OwnershipCore})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"Core"}`, string(data))

	var back map[string]Ownership
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, OwnershipCore, back["m"])

	var bad Ownership
	assert.Error(t, bad.UnmarshalText([]byte("Presentation")))
}

func TestParseOwnership(t *testing.T) {
	o, ok := ParseOwnership(" infrastructure ")
	assert.True(t, ok)
	assert.Equal(t, OwnershipInfrastructure, o)

	_, ok = ParseOwnership("nope")
	assert.False(t, ok)
}

func TestInferOwnership(t *testing.T) {
	tests := []struct {
		path    string
		classes []string
		want    Ownership
	}{
		{"pkg/infrastructure/cache.py", nil, OwnershipInfrastructure},
		{"pkg/persistence/repo.py", nil, OwnershipInfrastructure},
		{"pkg/caching/lru.py", nil, OwnershipInfrastructure},
		{"pkg/core/engine.py", nil, OwnershipCore},
		{"pkg/orchestrator.py", nil, OwnershipCore},
		{"pkg/api/routes.py", nil, OwnershipInterface},
		{"pkg/interface/cli.py", nil, OwnershipInterface},
		{"pkg/models/user.py", nil, OwnershipData},
		{"pkg/data/models.py", nil, OwnershipData},
		{"tests/unit_test.py", nil, OwnershipTest},
		{"pkg/util/shapes.py", []string{"BaseShape"}, OwnershipAbstractions},
		{"pkg/util/shapes.py", []string{"Shape"}, OwnershipInternal},
		{`PKG\Core\Engine.py`, nil, OwnershipCore},
		// Priority: infrastructure beats core, core beats test.
		{"core/infrastructure/x.py", nil, OwnershipInfrastructure},
		{"tests/core/x.py", nil, OwnershipCore},
		// Token rules beat the class fallback.
		{"pkg/data/base.py", []string{"BaseModel"}, OwnershipData},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, InferOwnership(tt.path, tt.classes))
		})
	}
}

func TestModuleID(t *testing.T) {
	tests := map[string]string{
		"pkg/core/engine.py":   "pkg.core.engine",
		"main.py":              "main",
		"./pkg/a.py":           "pkg.a",
		`pkg\win\mod.py`:       "pkg.win.mod",
		"pkg/__init__.py":      "pkg.__init__",
		"pkg/sub/deep/leaf.py": "pkg.sub.deep.leaf",
	}
	for in, want := range tests {
		if got := ModuleID(in); got != want {
			t.Errorf("ModuleID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveImport(t *testing.T) {
	tests := []struct {
		name string
		id   string
		imp  ast.Import
		want string
	}{
		{"absolute", "pkg.core.engine", ast.Import{Module: "os.path"}, "os.path"},
		{"sibling", "pkg.core.engine", ast.Import{Module: "cache", Level: 1}, "pkg.core.cache"},
		{"package only", "pkg.core.engine", ast.Import{Level: 1}, "pkg.core"},
		{"parent", "pkg.core.engine", ast.Import{Module: "data.models", Level: 2}, "pkg.data.models"},
		{"parent bare", "pkg.core.engine", ast.Import{Level: 2}, "pkg"},
		{"too deep keeps module", "pkg.engine", ast.Import{Module: "x", Level: 5}, "x"},
		{"too deep no module", "pkg.engine", ast.Import{Level: 5}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveImport(tt.id, tt.imp))
		})
	}
}

func TestImportMatches(t *testing.T) {
	assert.True(t, ImportMatches("pkg.a", "pkg.a"))
	assert.True(t, ImportMatches("pkg.a.Thing", "pkg.a"))
	assert.False(t, ImportMatches("pkg.ab", "pkg.a"), "prefix must end on a dot boundary")
	assert.False(t, ImportMatches("pkg", "pkg.a"))
	assert.False(t, ImportMatches("pkg.a", ""))
}

func TestGraph_AddModule(t *testing.T) {
	g := NewGraph("/project")
	require.NoError(t, g.AddModule(NewModule(ModuleSource{ID: "b", RelPath: "b.py"})))
	require.NoError(t, g.AddModule(NewModule(ModuleSource{ID: "a", RelPath: "a.py"})))

	err := g.AddModule(NewModule(ModuleSource{ID: "a", RelPath: "a.py"}))
	assert.True(t, errors.Is(err, ErrDuplicateModule))
	assert.True(t, errors.Is(g.AddModule(nil), ErrInvalidModule))
	assert.True(t, errors.Is(g.AddModule(NewModule(ModuleSource{})), ErrInvalidModule))

	assert.Equal(t, []string{"a", "b"}, g.ModuleIDs())
	assert.Equal(t, GraphStateBuilding, g.State())

	g.Freeze()
	assert.True(t, g.IsFrozen())
	assert.NotZero(t, g.BuiltAtMilli)
	assert.True(t, errors.Is(g.AddModule(NewModule(ModuleSource{ID: "c"})), ErrGraphFrozen))
}

func TestGraph_EdgesDerivedFromImports(t *testing.T) {
	g := mustGraph(t,
		ModuleSource{ID: "pkg", RelPath: "pkg/__init__.py"},
		ModuleSource{ID: "pkg.a", Imports: []string{"pkg.b.Thing", "pkg.b", "os", "pkg.a"}},
		ModuleSource{ID: "pkg.b"},
	)

	// "pkg.b.Thing" matches both "pkg" and "pkg.b"; the self import is not an edge.
	assert.Equal(t, []string{"pkg", "pkg.b"}, g.ImportTargets("pkg.a"))
	assert.True(t, g.ImportsSelf("pkg.a"))
	assert.False(t, g.ImportsSelf("pkg.b"))
	assert.False(t, g.ImportsSelf("missing"))
	assert.Equal(t, 2, FanOut(g, "pkg.a"), "self import is not fan-out")
	assert.Zero(t, FanIn(g, "pkg.a"))
	assert.Equal(t, []string{"pkg.a"}, g.Importers("pkg.b"))
	assert.Equal(t, []Edge{
		{From: "pkg.a", To: "pkg"},
		{From: "pkg.a", To: "pkg.b"},
	}, g.Edges())
	assert.Nil(t, g.ImportTargets("missing"))
	assert.Nil(t, g.Importers("missing"))
}

func TestModule_OwnershipImmutableAcrossRebuild(t *testing.T) {
	src := ModuleSource{ID: "pkg.core.engine", RelPath: "pkg/core/engine.py"}
	a := NewModule(src)
	b := NewModule(src)
	assert.Equal(t, OwnershipCore, a.Ownership())
	assert.Equal(t, a.Ownership(), b.Ownership())

	_, ok := a.Metrics()
	assert.False(t, ok, "metrics absent before ComputeMetrics")
}

func TestModule_Declares(t *testing.T) {
	m := NewModule(ModuleSource{ID: "x", Symbols: []ast.Symbol{
		{Name: "Service", Kind: ast.SymbolKindClass},
		{Name: "Service.run", Kind: ast.SymbolKindMethod},
		{Name: "helper", Kind: ast.SymbolKindFunction},
	}})
	assert.True(t, m.Declares("helper"))
	assert.True(t, m.Declares("run"))
	assert.True(t, m.Declares("Service.run"))
	assert.False(t, m.Declares("ervice.run"))
	assert.Equal(t, []string{"Service"}, m.Classes())
}
