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
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// ValidationReport is the folded result of a Validator run.
type ValidationReport struct {
	// Success is true when no violation is Critical.
	Success bool `json:"success"`

	// Violations in rule registration order.
	Violations []Violation `json:"violations"`

	// ProjectStats counts modules per ownership layer.
	ProjectStats map[string]int `json:"project_stats"`
}

// CriticalCount returns the number of Critical violations.
func (r ValidationReport) CriticalCount() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// Validator runs a set of rules.
//
// # Thread Safety
//
// Safe for concurrent use. Rules may be added while other goroutines
// validate; each run sees a snapshot of the rule set.
type Validator struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewValidator creates a Validator with the given rules.
func NewValidator(rules ...Rule) *Validator {
	return &Validator{rules: append([]Rule(nil), rules...)}
}

// DefaultValidator returns a Validator with the cycle and layering rules.
func DefaultValidator() *Validator {
	return NewValidator(NewCycleRule(), NewLayeredRule(nil))
}

// AddRule appends a rule.
func (v *Validator) AddRule(r Rule) {
	v.mu.Lock()
	v.rules = append(v.rules, r)
	v.mu.Unlock()
}

// Rules returns a copy of the rule set.
func (v *Validator) Rules() []Rule {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Rule(nil), v.rules...)
}

// Validate runs every rule against g.
func (v *Validator) Validate(ctx context.Context, g *graph.Graph) ValidationReport {
	rules := v.Rules()

	ctx, span := startValidateSpan(ctx, len(rules), g.Len())
	defer span.End()

	report := ValidationReport{
		Violations:   []Violation{},
		ProjectStats: graph.LayerStatsByName(g),
	}
	for _, r := range rules {
		report.Violations = append(report.Violations, r.Validate(g)...)
	}
	report.Success = report.CriticalCount() == 0

	span.SetAttributes(
		attribute.Bool("rules.success", report.Success),
		attribute.Int("rules.violations", len(report.Violations)),
	)
	recordValidation(ctx, report)
	return report
}
