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
	"strings"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// CycleRuleName is the name reported by CycleRule.
const CycleRuleName = "No Cycles"

// CycleRule reports import cycles.
//
// A depth-first search starts from every module not yet visited, in id
// order. The first back edge found closes a cycle, which is reported and
// ends that search; modules it already touched stay visited. The result is
// therefore one cycle per unvisited region, not every cycle in the graph,
// but it is non-empty exactly when the graph has a cycle.
type CycleRule struct{}

// NewCycleRule creates a CycleRule.
func NewCycleRule() *CycleRule {
	return &CycleRule{}
}

// Name implements Rule.
func (r *CycleRule) Name() string { return CycleRuleName }

// Severity implements Rule.
func (r *CycleRule) Severity() Severity { return SeverityCritical }

// Validate implements Rule.
func (r *CycleRule) Validate(g *graph.Graph) []Violation {
	var violations []Violation
	for _, cycle := range FindCycles(g) {
		violations = append(violations, Violation{
			Rule:     CycleRuleName,
			Severity: SeverityCritical,
			Message:  "Cyclic dependency detected: " + strings.Join(cycle, " -> "),
		})
	}
	return violations
}

// FindCycles returns one closed walk per search root that finds one. Each
// walk starts and ends with the same module id; a module importing itself
// yields the walk [id, id].
func FindCycles(g *graph.Graph) [][]string {
	c := &cycleSearch{
		g:       g,
		visited: make(map[string]bool),
		onStack: make(map[string]int),
	}
	var cycles [][]string
	for _, id := range g.ModuleIDs() {
		if c.visited[id] {
			continue
		}
		if cycle := c.dfs(id); cycle != nil {
			cycles = append(cycles, cycle)
		}
		c.stack = c.stack[:0]
		clear(c.onStack)
	}
	return cycles
}

type cycleSearch struct {
	g       *graph.Graph
	visited map[string]bool
	onStack map[string]int
	stack   []string
}

func (c *cycleSearch) dfs(id string) []string {
	c.visited[id] = true
	c.onStack[id] = len(c.stack)
	c.stack = append(c.stack, id)

	if c.g.ImportsSelf(id) {
		return []string{id, id}
	}
	for _, next := range c.g.ImportTargets(id) {
		if idx, ok := c.onStack[next]; ok {
			cycle := make([]string, 0, len(c.stack)-idx+1)
			cycle = append(cycle, c.stack[idx:]...)
			return append(cycle, next)
		}
		if c.visited[next] {
			continue
		}
		if cycle := c.dfs(next); cycle != nil {
			return cycle
		}
	}

	c.stack = c.stack[:len(c.stack)-1]
	delete(c.onStack, id)
	return nil
}
