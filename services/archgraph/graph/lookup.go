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

import "strings"

// MatchKind says how FindSymbolMetrics resolved a query.
type MatchKind string

const (
	MatchModule    MatchKind = "module"
	MatchQualified MatchKind = "qualified_symbol"
	MatchSymbol    MatchKind = "symbol"
	MatchFuzzy     MatchKind = "fuzzy"
)

// SymbolMetrics is the metric view of the module that owns a queried name.
type SymbolMetrics struct {
	Query      string    `json:"query"`
	Module     string    `json:"module"`
	Symbol     string    `json:"symbol,omitempty"`
	Match      MatchKind `json:"match"`
	Churn      int       `json:"churn"`
	Complexity int       `json:"complexity"`
	FanIn      int       `json:"fan_in"`
	FanOut     int       `json:"fan_out"`
	Depth      int       `json:"depth"`
	Risk       RiskLevel `json:"risk"`
}

// FindSymbolMetrics looks up query as a module, class, or function.
//
// Description:
//
//	Resolution order, first hit wins:
//	  1. a module id equal to query
//	  2. "module.symbol" where module declares symbol
//	  3. the first module (by id) declaring query, bare or as "Class.method"
//	  4. the first module id containing query, case-insensitively
//
//	Risk is UNKNOWN when metrics have not been computed or the module has
//	neither symbols nor imports to judge from.
//
// Outputs:
//
//	SymbolMetrics - Resolved metrics.
//	bool          - False when nothing matched.
func FindSymbolMetrics(g *Graph, query string) (SymbolMetrics, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return SymbolMetrics{}, false
	}

	m, symbol, kind := resolveQuery(g, q)
	if m == nil {
		return SymbolMetrics{}, false
	}

	sm := SymbolMetrics{
		Query:      query,
		Module:     m.ID,
		Symbol:     symbol,
		Match:      kind,
		Complexity: m.Complexity,
		Risk:       RiskUnknown,
	}
	if metrics, ok := m.Metrics(); ok {
		sm.Churn = metrics.Churn
		sm.FanIn = metrics.FanIn
		sm.FanOut = metrics.FanOut
		sm.Depth = metrics.DependencyDepth
		if len(m.Symbols) > 0 || len(m.Imports) > 0 {
			sm.Risk = ClassifyRisk(metrics)
		}
	}
	return sm, true
}

func resolveQuery(g *Graph, q string) (*Module, string, MatchKind) {
	if m, ok := g.modules[q]; ok {
		return m, "", MatchModule
	}

	for i := len(q) - 1; i > 0; i-- {
		if q[i] != '.' {
			continue
		}
		if m, ok := g.modules[q[:i]]; ok {
			sym := q[i+1:]
			for _, s := range m.Symbols {
				if s.Name == sym {
					return m, sym, MatchQualified
				}
			}
		}
	}

	for _, id := range g.ids {
		m := g.modules[id]
		for _, s := range m.Symbols {
			if s.Name == q || strings.HasSuffix(s.Name, "."+q) {
				return m, s.Name, MatchSymbol
			}
		}
	}

	lower := strings.ToLower(q)
	for _, id := range g.ids {
		if strings.Contains(strings.ToLower(id), lower) {
			return g.modules[id], "", MatchFuzzy
		}
	}
	return nil, "", ""
}
