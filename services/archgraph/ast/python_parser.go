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
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFileSize is the largest source file parsed (10 MiB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Tree-sitter node types used by the Python extractor.
const (
	pyNodeModule              = "module"
	pyNodeComment             = "comment"
	pyNodeImportStatement     = "import_statement"
	pyNodeImportFromStatement = "import_from_statement"
	pyNodeDottedName          = "dotted_name"
	pyNodeAliasedImport       = "aliased_import"
	pyNodeRelativeImport      = "relative_import"
	pyNodeImportPrefix        = "import_prefix"
	pyNodeFunctionDefinition  = "function_definition"
	pyNodeClassDefinition     = "class_definition"
	pyNodeDecoratedDefinition = "decorated_definition"
	pyNodeDecorator           = "decorator"
	pyNodeExpressionStatement = "expression_statement"
	pyNodeString              = "string"
	pyNodeCall                = "call"
	pyNodeIdentifier          = "identifier"
	pyNodeAttribute           = "attribute"
	pyNodeError               = "ERROR"
)

// pyDecisionNodes each add one to the complexity count.
var pyDecisionNodes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"with_statement":         true,
	"boolean_operator":       true,
	"conditional_expression": true,
	"for_in_clause":          true,
	"if_clause":              true,
	"case_clause":            true,
}

// PythonParser extracts symbols, calls, and imports from Python source
// using tree-sitter.
//
// Symbol rules:
//   - module-level classes and functions are declared under their own name
//   - functions directly inside a top-level class body are declared as
//     "Class.method"
//   - nested functions and classes are not declared; their calls are
//     attributed to the enclosing declared symbol
//
// Call text is the bare callee name for "f()", "recv.attr" when the
// receiver is a plain identifier, and the trailing attribute otherwise.
// Calls at module level are not recorded.
//
// Thread Safety: safe for concurrent use.
type PythonParser struct {
	maxFileSize int
}

// PythonParserOption configures a PythonParser.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize overrides DefaultMaxFileSize.
func WithPythonMaxFileSize(bytes int) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// NewPythonParser creates a Python parser.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "python".
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns [".py"].
func (p *PythonParser) Extensions() []string {
	return []string{".py"}
}

// Parse extracts a ParseResult from Python source.
//
// Outputs:
//
//	*ParseResult - Extracted facts. Never nil on success.
//	error        - ErrContextCanceled, ErrFileTooLarge, ErrInvalidContent, or a
//	               *ParseError wrapping ErrParseFailed when the tree has syntax errors.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
	}
	if len(content) > p.maxFileSize {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", filePath, ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s: %w: not valid UTF-8", filePath, ErrInvalidContent)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		}
		return nil, &ParseError{FilePath: filePath, Message: err.Error(), Cause: ErrParseFailed}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		perr := &ParseError{FilePath: filePath, Message: "syntax error", Cause: ErrParseFailed}
		if bad := firstErrorNode(root); bad != nil {
			perr.Line = int(bad.StartPoint().Row) + 1
			perr.Column = int(bad.StartPoint().Column) + 1
		}
		return nil, perr
	}

	e := &pyExtractor{
		src:      content,
		declared: make(map[string]bool),
		result: &ParseResult{
			FilePath:   filePath,
			Language:   p.Language(),
			Calls:      make(map[string][]string),
			Complexity: 1,
		},
	}
	e.result.Docstring = e.moduleDocstring(root)
	e.walk(root, pyScope{})

	return e.result, nil
}

// pyScope tracks where the walker is relative to declared symbols.
type pyScope struct {
	// owner is the declared symbol that receives calls, or "".
	owner string

	// class is set while walking directly inside a top-level class body.
	class string
}

// target is the declared symbol calls are attributed to.
func (s pyScope) target() string {
	if s.owner != "" {
		return s.owner
	}
	return s.class
}

type pyExtractor struct {
	src      []byte
	result   *ParseResult
	declared map[string]bool
}

func (e *pyExtractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(e.src)
}

func (e *pyExtractor) declare(name string, kind SymbolKind, n *sitter.Node) {
	if name == "" || e.declared[name] {
		return
	}
	e.declared[name] = true
	e.result.Symbols = append(e.result.Symbols, Symbol{
		Name: name,
		Kind: kind,
		Line: int(n.StartPoint().Row) + 1,
	})
}

func (e *pyExtractor) walk(n *sitter.Node, sc pyScope) {
	if n == nil {
		return
	}

	if pyDecisionNodes[n.Type()] {
		e.result.Complexity++
	}

	switch n.Type() {
	case pyNodeImportStatement, pyNodeImportFromStatement:
		// Only module-level imports are edges; local imports usually break cycles.
		if parent := n.Parent(); parent != nil && parent.Type() == pyNodeModule {
			e.addImports(n)
		}
		return

	case pyNodeDecoratedDefinition:
		def := n.ChildByFieldName("definition")
		inner := sc
		if name, _, ok := e.declaration(def, sc); ok {
			inner = pyScope{owner: name}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == pyNodeDecorator {
				e.walk(child, inner)
			}
		}
		e.walk(def, sc)
		return

	case pyNodeFunctionDefinition:
		if name, kind, ok := e.declaration(n, sc); ok {
			e.declare(name, kind, n)
			e.walkChildren(n, pyScope{owner: name})
			return
		}
		e.walkChildren(n, pyScope{owner: sc.target()})
		return

	case pyNodeClassDefinition:
		if name, kind, ok := e.declaration(n, sc); ok {
			e.declare(name, kind, n)
			if sup := n.ChildByFieldName("superclasses"); sup != nil {
				e.walk(sup, pyScope{owner: name})
			}
			e.walk(n.ChildByFieldName("body"), pyScope{class: name})
			return
		}
		e.walkChildren(n, pyScope{owner: sc.target()})
		return

	case pyNodeCall:
		if target := sc.target(); target != "" {
			if call := e.callText(n.ChildByFieldName("function")); call != "" {
				e.result.Calls[target] = append(e.result.Calls[target], call)
			}
		}
	}

	e.walkChildren(n, sc)
}

func (e *pyExtractor) walkChildren(n *sitter.Node, sc pyScope) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), sc)
	}
}

// declaration reports the symbol a function or class definition declares
// in scope sc, if any.
func (e *pyExtractor) declaration(n *sitter.Node, sc pyScope) (string, SymbolKind, bool) {
	if n == nil || sc.owner != "" {
		return "", "", false
	}
	name := e.text(n.ChildByFieldName("name"))
	if name == "" {
		return "", "", false
	}

	switch n.Type() {
	case pyNodeFunctionDefinition:
		if sc.class != "" {
			return sc.class + "." + name, SymbolKindMethod, true
		}
		return name, SymbolKindFunction, true
	case pyNodeClassDefinition:
		if sc.class != "" {
			return "", "", false
		}
		return name, SymbolKindClass, true
	}
	return "", "", false
}

func (e *pyExtractor) callText(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case pyNodeIdentifier:
		return e.text(fn)
	case pyNodeAttribute:
		attr := e.text(fn.ChildByFieldName("attribute"))
		if attr == "" {
			return ""
		}
		if obj := fn.ChildByFieldName("object"); obj != nil && obj.Type() == pyNodeIdentifier {
			return e.text(obj) + "." + attr
		}
		return attr
	}
	return ""
}

func (e *pyExtractor) addImports(n *sitter.Node) {
	line := int(n.StartPoint().Row) + 1

	if n.Type() == pyNodeImportStatement {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			var name string
			switch child.Type() {
			case pyNodeDottedName:
				name = e.text(child)
			case pyNodeAliasedImport:
				name = e.text(child.ChildByFieldName("name"))
			}
			if name = compactDotted(name); name != "" {
				e.result.Imports = append(e.result.Imports, Import{Module: name, Line: line})
			}
		}
		return
	}

	mod := n.ChildByFieldName("module_name")
	if mod == nil {
		return
	}
	imp := Import{Line: line}
	switch mod.Type() {
	case pyNodeDottedName:
		imp.Module = compactDotted(e.text(mod))
	case pyNodeRelativeImport:
		for i := 0; i < int(mod.NamedChildCount()); i++ {
			child := mod.NamedChild(i)
			switch child.Type() {
			case pyNodeImportPrefix:
				imp.Level = strings.Count(e.text(child), ".")
			case pyNodeDottedName:
				imp.Module = compactDotted(e.text(child))
			}
		}
	default:
		return
	}
	e.result.Imports = append(e.result.Imports, imp)
}

func (e *pyExtractor) moduleDocstring(root *sitter.Node) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == pyNodeComment {
			continue
		}
		if child.Type() != pyNodeExpressionStatement || child.NamedChildCount() == 0 {
			return ""
		}
		str := child.NamedChild(0)
		if str.Type() != pyNodeString {
			return ""
		}
		return unquote(e.text(str))
	}
	return ""
}

// unquote strips a Python string literal's prefix and quotes.
func unquote(lit string) string {
	s := strings.TrimLeft(lit, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}

func compactDotted(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == pyNodeError || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}
