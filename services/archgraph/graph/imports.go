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
	"path"
	"strings"

	"github.com/Hami0095/ai-architecture/services/archgraph/ast"
)

// ModuleID derives the dotted module id from a slash-separated path relative
// to the project root: "pkg/core/engine.py" becomes "pkg.core.engine".
func ModuleID(relPath string) string {
	rel := strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, `\`, "/")), "./")
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return strings.ReplaceAll(rel, "/", ".")
}

// ResolveImport turns an import statement into an absolute module name.
//
// Level 0 returns the module name verbatim. For level N > 0 the last N
// segments of moduleID are dropped and the stated module, if any, is
// appended. A level deeper than the id leaves only the stated module.
//
// Example:
//
//	ResolveImport("pkg.core.engine", ast.Import{Module: "cache", Level: 1})  // "pkg.core.cache"
//	ResolveImport("pkg.core.engine", ast.Import{Module: "", Level: 2})       // "pkg"
func ResolveImport(moduleID string, imp ast.Import) string {
	if imp.Level <= 0 {
		return imp.Module
	}

	parts := strings.Split(moduleID, ".")
	keep := len(parts) - imp.Level
	if keep < 0 {
		keep = 0
	}
	base := append([]string(nil), parts[:keep]...)
	if imp.Module != "" {
		base = append(base, imp.Module)
	}
	return strings.Join(base, ".")
}

// ImportMatches reports whether import string imp refers to module id:
// imp equals id, or imp starts with id + ".".
func ImportMatches(imp, id string) bool {
	if id == "" {
		return false
	}
	return imp == id || strings.HasPrefix(imp, id+".")
}
