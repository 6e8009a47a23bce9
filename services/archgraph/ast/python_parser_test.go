// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonServiceSource = `"""Order service: coordinates repositories."""

import os
import pkg.infrastructure.cache as cache
from typing import Optional
from . import sibling
from ..data.models import Order

class BaseRepository:
    def save(self, item):
        return self.store.put(item)

class OrderService(BaseRepository):
    timeout = compute_timeout()

    @staticmethod
    def build():
        return OrderService()

    def place(self, order):
        if order is None:
            raise ValueError("missing")
        validated = validate(order)
        self.save(validated)
        cache.invalidate(order.id)
        return helpers.format.render(validated)

def validate(order):
    def inner():
        return check(order)
    return inner() and order.total > 0

main()
`

func parsePython(t *testing.T, src string) *ParseResult {
	t.Helper()
	result, err := NewPythonParser().Parse(context.Background(), []byte(src), "service.py")
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestPythonParser_Parse_EmptyFile(t *testing.T) {
	result := parsePython(t, "")

	if result.Language != "python" {
		t.Errorf("expected language 'python', got %q", result.Language)
	}
	if result.FilePath != "service.py" {
		t.Errorf("expected file path 'service.py', got %q", result.FilePath)
	}
	if len(result.Symbols) != 0 || len(result.Imports) != 0 {
		t.Errorf("expected no symbols or imports, got %v %v", result.Symbols, result.Imports)
	}
	if result.Complexity != 1 {
		t.Errorf("expected base complexity 1, got %d", result.Complexity)
	}
}

func TestPythonParser_Parse_Symbols(t *testing.T) {
	result := parsePython(t, pythonServiceSource)

	assert.Equal(t, []string{
		"BaseRepository",
		"BaseRepository.save",
		"OrderService",
		"OrderService.build",
		"OrderService.place",
		"validate",
	}, result.SymbolNames())

	kinds := make(map[string]SymbolKind)
	for _, s := range result.Symbols {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, SymbolKindClass, kinds["OrderService"])
	assert.Equal(t, SymbolKindMethod, kinds["OrderService.place"])
	assert.Equal(t, SymbolKindFunction, kinds["validate"])
}

func TestPythonParser_Parse_Calls(t *testing.T) {
	result := parsePython(t, pythonServiceSource)

	assert.Equal(t, []string{"put"}, result.Calls["BaseRepository.save"],
		"deep receiver chains record the trailing attribute")
	assert.Equal(t, []string{"compute_timeout"}, result.Calls["OrderService"],
		"class body calls belong to the class")
	assert.Equal(t, []string{"OrderService"}, result.Calls["OrderService.build"])
	assert.Equal(t, []string{
		"ValueError",
		"validate",
		"self.save",
		"cache.invalidate",
		"render",
	}, result.Calls["OrderService.place"])
	assert.Equal(t, []string{"check", "inner"}, result.Calls["validate"],
		"nested function calls belong to the enclosing symbol")

	for sym, calls := range result.Calls {
		for _, c := range calls {
			assert.NotEqual(t, "main", c, "module-level call recorded under %s", sym)
		}
	}
}

func TestPythonParser_Parse_Imports(t *testing.T) {
	result := parsePython(t, pythonServiceSource)

	got := make([]Import, len(result.Imports))
	for i, imp := range result.Imports {
		got[i] = Import{Module: imp.Module, Level: imp.Level}
	}
	assert.Equal(t, []Import{
		{Module: "os", Level: 0},
		{Module: "pkg.infrastructure.cache", Level: 0},
		{Module: "typing", Level: 0},
		{Module: "", Level: 1},
		{Module: "data.models", Level: 2},
	}, got)
}

func TestPythonParser_Parse_NestedImportsIgnored(t *testing.T) {
	src := `import pkg.top

def load():
    from pkg.core import engine
    return engine.run()

class Repo:
    import pkg.inside_class

if TYPE_CHECKING:
    from pkg.types import Order

try:
    import ujson
except ImportError:
    import json
`
	result := parsePython(t, src)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "pkg.top", result.Imports[0].Module)
	assert.Equal(t, []string{"engine.run"}, result.Calls["load"])
}

func TestPythonParser_Parse_ModuleDocstring(t *testing.T) {
	result := parsePython(t, pythonServiceSource)
	assert.Equal(t, "Order service: coordinates repositories.", result.Docstring)

	noDoc := parsePython(t, "x = 1\n\"\"\"not a docstring\"\"\"\n")
	assert.Empty(t, noDoc.Docstring)

	commented := parsePython(t, "# header\n'''Single quoted.'''\n")
	assert.Equal(t, "Single quoted.", commented.Docstring)
}

func TestPythonParser_Parse_DecoratorCallsBelongToSymbol(t *testing.T) {
	src := `@app.route("/orders")
def list_orders():
    return query()
`
	result := parsePython(t, src)
	assert.Equal(t, []string{"app.route", "query"}, result.Calls["list_orders"])
}

func TestPythonParser_Parse_Complexity(t *testing.T) {
	src := `def f(x):
    if x and x > 1:
        return [y for y in range(x) if y]
    elif x:
        return 1
    for i in range(3):
        pass
    return 0
`
	result := parsePython(t, src)
	// base + if, and, for_in_clause, if_clause, elif, for
	assert.Equal(t, 7, result.Complexity)
}

func TestPythonParser_Parse_RedefinedSymbolDeclaredOnce(t *testing.T) {
	src := `def f():
    a()

def f():
    b()
`
	result := parsePython(t, src)
	assert.Equal(t, []string{"f"}, result.SymbolNames())
	assert.Equal(t, []string{"a", "b"}, result.Calls["f"])
}

func TestPythonParser_Parse_SyntaxError(t *testing.T) {
	_, err := NewPythonParser().Parse(context.Background(), []byte("def broken(:\n    pass\n"), "broken.py")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailed))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.py", perr.FilePath)
	assert.Greater(t, perr.Line, 0)
}

func TestPythonParser_Parse_InvalidUTF8(t *testing.T) {
	_, err := NewPythonParser().Parse(context.Background(), []byte{0xff, 0xfe, 0x00}, "bin.py")
	assert.True(t, errors.Is(err, ErrInvalidContent))
}

func TestPythonParser_Parse_FileTooLarge(t *testing.T) {
	p := NewPythonParser(WithPythonMaxFileSize(8))
	_, err := p.Parse(context.Background(), []byte("x = 1234567890"), "big.py")
	assert.True(t, errors.Is(err, ErrFileTooLarge))
}

func TestPythonParser_Parse_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPythonParser().Parse(ctx, []byte("def foo(): pass"), "test.py")

	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if !strings.Contains(err.Error(), "canceled") {
		t.Errorf("expected canceled error, got: %v", err)
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"""doc"""`, "doc"},
		{`'''  padded  '''`, "padded"},
		{`"x"`, "x"},
		{`r"raw"`, "raw"},
		{`""`, ""},
	}
	for _, tt := range tests {
		if got := unquote(tt.in); got != tt.want {
			t.Errorf("unquote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
