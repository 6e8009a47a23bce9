// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// ErrInvalidPatch is returned when a patch cannot be parsed as a unified diff.
var ErrInvalidPatch = errors.New("invalid unified diff")

const devNull = "/dev/null"

// Change is one module touched by a patch.
type Change struct {
	// Module is the graph module id.
	Module string `json:"module"`

	// File is the root-relative path from the patch header.
	File string `json:"file"`

	// Symbols are the declared symbols whose line span overlaps a hunk.
	// Empty when only module-level lines changed.
	Symbols []string `json:"symbols,omitempty"`
}

// ChangedModules maps a unified diff onto the graph.
//
// Description:
//
//	Each file in the patch is mapped to a module id with the same rule the
//	builder uses. Files without a module in g (new files, non-Python
//	files, paths outside the root) are skipped. A symbol spans from its
//	declaration line to the line before the next declared symbol, so a
//	hunk inside a method is attributed to "Class.method" and not to the
//	class.
//
// Outputs:
//
//	[]Change - Sorted by module id.
//	error    - ErrInvalidPatch if the diff does not parse.
func ChangedModules(g *graph.Graph, patch []byte) ([]Change, error) {
	fileDiffs, err := diff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	byModule := make(map[string]*Change)
	for _, fd := range fileDiffs {
		rel := patchPath(fd)
		if path.Ext(rel) != ".py" {
			continue
		}
		id := graph.ModuleID(rel)
		m, ok := g.Module(id)
		if !ok {
			continue
		}

		c, ok := byModule[id]
		if !ok {
			c = &Change{Module: id, File: rel}
			byModule[id] = c
		}
		c.Symbols = mergeSymbols(c.Symbols, touchedSymbols(m, fd.Hunks))
	}

	changes := make([]Change, 0, len(byModule))
	for _, c := range byModule {
		changes = append(changes, *c)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Module < changes[j].Module })
	return changes, nil
}

// patchPath returns the post-image path, or the pre-image path for
// deletions, with the conventional a/ b/ prefixes removed.
func patchPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == devNull {
		name = fd.OrigName
	}
	if name == "" || name == devNull {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		name = name[2:]
	}
	return name
}

func touchedSymbols(m *graph.Module, hunks []*diff.Hunk) []string {
	var touched []string
	for i, sym := range m.Symbols {
		if sym.Line <= 0 {
			continue
		}
		end := math.MaxInt
		if i+1 < len(m.Symbols) && m.Symbols[i+1].Line > sym.Line {
			end = m.Symbols[i+1].Line - 1
		}
		for _, h := range hunks {
			hStart, hEnd := hunkRange(h)
			if sym.Line <= hEnd && hStart <= end {
				touched = append(touched, sym.Name)
				break
			}
		}
	}
	return touched
}

// hunkRange returns the inclusive line range of a hunk in the new file, or
// in the old file when the hunk is a pure deletion.
func hunkRange(h *diff.Hunk) (int, int) {
	start, n := int(h.NewStartLine), int(h.NewLines)
	if n == 0 {
		start, n = int(h.OrigStartLine), int(h.OrigLines)
	}
	if n == 0 {
		return start, start
	}
	return start, start + n - 1
}

func mergeSymbols(have, add []string) []string {
	for _, s := range add {
		dup := false
		for _, h := range have {
			if h == s {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, s)
		}
	}
	return have
}
