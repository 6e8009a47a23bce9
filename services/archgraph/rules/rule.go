// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules enforces architectural policy over a frozen graph.
//
// Every rule reads the derived import edges of the graph and nothing else;
// raw call references are never consulted. Rules are independent and
// composable: a Validator runs any set of them and folds the results into
// one ValidationReport whose verdict is "no Critical violations".
package rules

import (
	"fmt"
	"strings"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// Severity grades a violation.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
)

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range []Severity{SeverityCritical, SeverityWarning, SeverityInfo} {
		if strings.EqualFold(string(sev), strings.TrimSpace(s)) {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Violation is one policy breach.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Rule is one architectural check.
//
// Validate must not mutate g and must return violations in a deterministic
// order for a given graph.
type Rule interface {
	Name() string
	Severity() Severity
	Validate(g *graph.Graph) []Violation
}
