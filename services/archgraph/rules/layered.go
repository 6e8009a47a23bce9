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
	"fmt"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// LayeredRuleName is the name reported by LayeredRule.
const LayeredRuleName = "Layered Policy"

// AllowedDownward maps a source layer to the layers it may import.
type AllowedDownward map[graph.Ownership][]graph.Ownership

// Allows reports whether an import from one layer to another is permitted.
// Same-layer imports are always permitted.
func (a AllowedDownward) Allows(from, to graph.Ownership) bool {
	if from == to {
		return true
	}
	for _, o := range a[from] {
		if o == to {
			return true
		}
	}
	return false
}

// DefaultAllowedDownward returns the shipped layering table.
//
// Core and Infrastructure may import each other, as may Data and
// Infrastructure. Abstractions, Internal, and Test may import every layer
// except Test.
func DefaultAllowedDownward() AllowedDownward {
	const (
		infra    = graph.OwnershipInfrastructure
		core     = graph.OwnershipCore
		iface    = graph.OwnershipInterface
		data     = graph.OwnershipData
		abstract = graph.OwnershipAbstractions
		internal = graph.OwnershipInternal
		test     = graph.OwnershipTest
	)
	return AllowedDownward{
		iface:    {core, infra, data, abstract, internal},
		core:     {infra, data, abstract, internal},
		infra:    {data, abstract, internal, core},
		data:     {abstract, internal, infra},
		abstract: {internal, core, infra, data, iface},
		internal: {iface, core, infra, data, abstract, internal},
		test:     {iface, core, infra, data, abstract, internal},
	}
}

// LayeredRule flags import edges whose target layer is not in the source
// layer's allowed set.
type LayeredRule struct {
	allowed AllowedDownward
}

// NewLayeredRule creates a LayeredRule. A nil table uses
// DefaultAllowedDownward.
func NewLayeredRule(allowed AllowedDownward) *LayeredRule {
	if allowed == nil {
		allowed = DefaultAllowedDownward()
	}
	return &LayeredRule{allowed: allowed}
}

// Name implements Rule.
func (r *LayeredRule) Name() string { return LayeredRuleName }

// Severity implements Rule.
func (r *LayeredRule) Severity() Severity { return SeverityCritical }

// Validate implements Rule.
func (r *LayeredRule) Validate(g *graph.Graph) []Violation {
	var violations []Violation
	for _, e := range g.Edges() {
		from, _ := g.Module(e.From)
		to, _ := g.Module(e.To)
		fromLayer, toLayer := from.Ownership(), to.Ownership()
		if r.allowed.Allows(fromLayer, toLayer) {
			continue
		}
		violations = append(violations, Violation{
			Rule:     LayeredRuleName,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("Layer Violation: %s (%s) calls UP to %s (%s)",
				e.From, fromLayer, e.To, toLayer),
		})
	}
	return violations
}
