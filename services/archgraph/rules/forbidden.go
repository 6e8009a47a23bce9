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
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// ErrInvalidPattern is returned for a malformed module glob.
var ErrInvalidPattern = errors.New("invalid module pattern")

// ForbiddenDependencyRule forbids imports from modules matching From to
// modules matching To.
//
// Patterns are doublestar globs over the slash form of module ids, so
// "app/api/**" matches "app.api.v1.users" and "**/legacy" matches any
// module named legacy.
type ForbiddenDependencyRule struct {
	name     string
	from     string
	to       string
	severity Severity
}

// NewForbiddenDependencyRule validates both patterns and creates the rule.
// An empty severity defaults to Critical.
func NewForbiddenDependencyRule(name, from, to string, severity Severity) (*ForbiddenDependencyRule, error) {
	for _, p := range []string{from, to} {
		if p == "" || !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	if severity == "" {
		severity = SeverityCritical
	}
	if name == "" {
		name = fmt.Sprintf("Forbidden %s -> %s", from, to)
	}
	return &ForbiddenDependencyRule{name: name, from: from, to: to, severity: severity}, nil
}

// Name implements Rule.
func (r *ForbiddenDependencyRule) Name() string { return r.name }

// Severity implements Rule.
func (r *ForbiddenDependencyRule) Severity() Severity { return r.severity }

// Validate implements Rule.
func (r *ForbiddenDependencyRule) Validate(g *graph.Graph) []Violation {
	var violations []Violation
	for _, e := range g.Edges() {
		if !matchModule(r.from, e.From) || !matchModule(r.to, e.To) {
			continue
		}
		violations = append(violations, Violation{
			Rule:     r.name,
			Severity: r.severity,
			Message:  fmt.Sprintf("Forbidden Dependency: %s must not import %s", e.From, e.To),
		})
	}
	return violations
}

func matchModule(pattern, id string) bool {
	ok, err := doublestar.Match(pattern, strings.ReplaceAll(id, ".", "/"))
	return err == nil && ok
}
