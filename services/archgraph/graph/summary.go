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

// SummaryTextLimit is the rune length kept from a module docstring.
const SummaryTextLimit = 150

// RelationshipImport is the only relationship type the graph derives.
const RelationshipImport = "import"

// ModuleSummary describes one module in a GraphSummary.
type ModuleSummary struct {
	File        string    `json:"file"`
	Symbols     []string  `json:"symbols"`
	Ownership   Ownership `json:"ownership"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
	SummaryText string    `json:"summary_text,omitempty"`
}

// Relationship is a deduplicated module-to-module edge.
type Relationship struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// CallRef is one raw call reference from a qualified symbol.
type CallRef struct {
	From     string `json:"from"`
	ToSymbol string `json:"to_symbol"`
}

// GraphSummary is the serializable view of a graph.
type GraphSummary struct {
	Root          string                   `json:"root"`
	Modules       map[string]ModuleSummary `json:"modules"`
	Relationships []Relationship           `json:"relationships"`
	CallGraph     []CallRef                `json:"call_graph"`
	LayerStats    map[string]int           `json:"layer_stats"`
}

// Summarize builds a GraphSummary. Slices are ordered by module id, then
// symbol declaration order, so identical graphs give identical summaries.
// Metrics are included only if ComputeMetrics has run.
func Summarize(g *Graph) GraphSummary {
	s := GraphSummary{
		Root:          g.Root,
		Modules:       make(map[string]ModuleSummary, g.Len()),
		Relationships: []Relationship{},
		CallGraph:     []CallRef{},
		LayerStats:    make(map[string]int),
	}

	for _, m := range g.Modules() {
		ms := ModuleSummary{
			File:        m.RelPath,
			Symbols:     m.SymbolNames(),
			Ownership:   m.Ownership(),
			SummaryText: truncateRunes(m.Docstring, SummaryTextLimit),
		}
		if metrics, ok := m.Metrics(); ok {
			ms.Metrics = &metrics
		}
		s.Modules[m.ID] = ms
		s.LayerStats[m.Ownership().String()]++

		seen := make(map[CallRef]bool)
		for _, sym := range m.Symbols {
			for _, call := range m.Calls[sym.Name] {
				ref := CallRef{From: m.ID + "." + sym.Name, ToSymbol: call}
				if !seen[ref] {
					seen[ref] = true
					s.CallGraph = append(s.CallGraph, ref)
				}
			}
		}
	}

	for _, e := range g.Edges() {
		s.Relationships = append(s.Relationships, Relationship{From: e.From, To: e.To, Type: RelationshipImport})
	}
	return s
}

// LayerStatsByName converts LayerStats to string keys.
func LayerStatsByName(g *Graph) map[string]int {
	out := make(map[string]int)
	for o, n := range g.LayerStats() {
		out[o.String()] = n
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
