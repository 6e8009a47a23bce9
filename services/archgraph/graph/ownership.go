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

// ownershipRule maps path substrings to a layer. Rules are tested in order
// and the first hit wins.
type ownershipRule struct {
	layer  Ownership
	tokens []string
}

var ownershipRules = []ownershipRule{
	{OwnershipInfrastructure, []string{"infrastructure", "persistence", "caching"}},
	{OwnershipCore, []string{"core", "orchestrator"}},
	{OwnershipInterface, []string{"api", "interface"}},
	{OwnershipData, []string{"model", "data"}},
	{OwnershipTest, []string{"test"}},
}

// InferOwnership assigns a layer from a file path and its declared classes.
//
// The path is lower-cased and slash-normalized, then tested against the
// token rules in priority order. When no token matches, a class name
// containing "Base" makes the module Abstractions; otherwise it is Internal.
// Matching is plain substring, so "rapid_import.py" counts as an api path.
//
// Example:
//
//	InferOwnership("pkg/core/engine.py", nil)                 // Core
//	InferOwnership("pkg/util/shapes.py", []string{"BaseShape"}) // Abstractions
func InferOwnership(path string, classes []string) Ownership {
	norm := strings.ToLower(strings.ReplaceAll(path, `\`, "/"))

	for _, rule := range ownershipRules {
		for _, tok := range rule.tokens {
			if strings.Contains(norm, tok) {
				return rule.layer
			}
		}
	}

	for _, c := range classes {
		if strings.Contains(c, "Base") {
			return OwnershipAbstractions
		}
	}
	return OwnershipInternal
}
