// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast is the source front-end of the architecture graph engine.
//
// A Parser turns one source file into the facts the graph needs: declared
// symbols, the lexical call references inside each symbol, import
// statements with their relative level, the module docstring, and a
// decision-point complexity count. Nothing here resolves names; the graph
// package consumes ParseResult as plain data.
//
// # Thread Safety
//
// Parsers are stateless and safe for concurrent use. Each Parse call owns
// its tree-sitter parser and tree.
package ast

import (
	"context"
	"sort"
	"sync"
)

// SymbolKind classifies a declared symbol.
type SymbolKind string

const (
	// SymbolKindClass is a class declaration.
	SymbolKindClass SymbolKind = "class"

	// SymbolKindFunction is a module-level function.
	SymbolKindFunction SymbolKind = "function"

	// SymbolKindMethod is a function declared directly in a class body.
	// Its name is qualified as "Class.method".
	SymbolKindMethod SymbolKind = "method"
)

// Symbol is one declared class, function, or method.
type Symbol struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
	Line int        `json:"line"`
}

// Import is one import statement as written.
//
// Level is 0 for absolute imports and the number of leading dots for
// relative ones. Module is empty for "from . import x".
type Import struct {
	Module string `json:"module"`
	Level  int    `json:"level"`
	Line   int    `json:"line"`
}

// ParseResult is the output contract of a Parser.
type ParseResult struct {
	// FilePath echoes the path given to Parse.
	FilePath string

	// Language is the parser's language name.
	Language string

	// Symbols are declared classes, functions, and methods in source order.
	Symbols []Symbol

	// Calls maps a declared symbol name to the call texts found in its body,
	// in source order with duplicates kept.
	Calls map[string][]string

	// Imports are module-level import statements in source order. Imports
	// nested in functions, classes, or blocks are not recorded.
	Imports []Import

	// Docstring is the module docstring with quotes removed, or "".
	Docstring string

	// Complexity is 1 plus the number of decision points in the file.
	Complexity int
}

// SymbolNames returns the declared symbol names in order.
func (r *ParseResult) SymbolNames() []string {
	names := make([]string, len(r.Symbols))
	for i, s := range r.Symbols {
		names[i] = s.Name
	}
	return names
}

// Parser extracts a ParseResult from source content.
type Parser interface {
	// Parse parses content. filePath is used for error messages only.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language returns the language name, e.g. "python".
	Language() string

	// Extensions returns handled file extensions including the dot.
	Extensions() []string
}

// Registry maps file extensions to parsers.
//
// Thread Safety: safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	byLanguage  map[string]Parser
	byExtension map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// DefaultRegistry returns a registry with the Python parser registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPythonParser())
	return r
}

// Register adds parser for its language and every extension it reports.
// Later registrations replace earlier ones for the same key. Nil is ignored.
func (r *Registry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser
	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByExtension returns the parser for ext (with leading dot).
func (r *Registry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// GetByLanguage returns the parser registered for language.
func (r *Registry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
