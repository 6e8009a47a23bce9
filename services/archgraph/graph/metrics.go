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

import "context"

// DefaultChurn is the churn recorded when the version-control lookup fails.
const DefaultChurn = 1

// ChurnSource reports how many commits touched a file.
//
// Implementations may shell out to a VCS; any error is absorbed by
// ComputeMetrics and replaced with DefaultChurn.
type ChurnSource interface {
	Churn(ctx context.Context, filePath string) (int, error)
}

// ChurnFunc adapts a function to ChurnSource.
type ChurnFunc func(ctx context.Context, filePath string) (int, error)

// Churn calls f.
func (f ChurnFunc) Churn(ctx context.Context, filePath string) (int, error) {
	return f(ctx, filePath)
}

// ComputeMetrics fills every module's Metrics.
//
// Description:
//
//	Runs once per graph; later calls return nil without recomputing. Churn
//	lookups are sequential, one per module, in module id order. A nil src
//	or a failed lookup yields DefaultChurn.
//
// Outputs:
//
//	error - ErrGraphNotFrozen if the node set is still open.
//
// Thread Safety: safe to call concurrently; only the first call computes.
func ComputeMetrics(ctx context.Context, g *Graph, src ChurnSource) error {
	if !g.IsFrozen() {
		return ErrGraphNotFrozen
	}

	g.metricsMu.Lock()
	defer g.metricsMu.Unlock()
	if g.metricsComputed {
		return nil
	}

	ctx, span := startQuerySpan(ctx, "ComputeMetrics", g.Len())
	defer span.End()

	for _, id := range g.ids {
		m := g.modules[id]
		m.metrics.Store(&Metrics{
			FanIn:           FanIn(g, id),
			FanOut:          FanOut(g, id),
			DependencyDepth: DependencyDepth(g, id),
			Churn:           churnFor(ctx, src, m.FilePath),
		})
	}
	g.metricsComputed = true
	return nil
}

func churnFor(ctx context.Context, src ChurnSource, filePath string) int {
	if src == nil {
		return DefaultChurn
	}
	n, err := src.Churn(ctx, filePath)
	if err != nil {
		recordChurnFallback(ctx)
		return DefaultChurn
	}
	return n
}

// FanOut counts the distinct import strings of id that match some other
// module.
func FanOut(g *Graph, id string) int {
	m, ok := g.modules[id]
	if !ok {
		return 0
	}
	seen := make(map[string]bool)
	count := 0
	for _, imp := range m.Imports {
		if seen[imp] {
			continue
		}
		seen[imp] = true
		for _, t := range g.matchingModules(imp) {
			if t != id {
				count++
				break
			}
		}
	}
	return count
}

// FanIn counts the other modules with at least one import matching id.
func FanIn(g *Graph, id string) int {
	return len(g.Importers(id))
}

// DependencyDepth returns the longest import chain reachable from id.
//
// The traversal is a depth-first search over ImportTargets in sorted order
// with one visited set per call. A module reached a second time contributes
// depth 0, which truncates cycles. It also under-counts when the longest
// path reaches a shared module after a shorter path already visited it
// (diamond shapes); callers relying on exact longest paths must not use it.
func DependencyDepth(g *Graph, id string) int {
	if _, ok := g.modules[id]; !ok {
		return 0
	}
	visited := make(map[string]bool)
	return depthFrom(g, id, visited)
}

func depthFrom(g *Graph, id string, visited map[string]bool) int {
	if visited[id] {
		return 0
	}
	visited[id] = true

	best := 0
	for _, t := range g.ImportTargets(id) {
		if d := 1 + depthFrom(g, t, visited); d > best {
			best = d
		}
	}
	return best
}

// =============================================================================
// Risk
// =============================================================================

// RiskLevel buckets a module's metrics.
type RiskLevel string

const (
	RiskHigh    RiskLevel = "HIGH"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskLow     RiskLevel = "LOW"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Risk thresholds. A value strictly above a threshold triggers the level.
const (
	HighFanIn   = 5
	HighChurn   = 10
	HighDepth   = 5
	MediumFanIn = 2
	MediumChurn = 5
	MediumDepth = 2
)

// ClassifyRisk maps metrics to a RiskLevel.
func ClassifyRisk(m Metrics) RiskLevel {
	switch {
	case m.FanIn > HighFanIn || m.Churn > HighChurn || m.DependencyDepth > HighDepth:
		return RiskHigh
	case m.FanIn > MediumFanIn || m.Churn > MediumChurn || m.DependencyDepth > MediumDepth:
		return RiskMedium
	default:
		return RiskLow
	}
}
