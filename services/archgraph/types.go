// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archgraph

import (
	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
	"github.com/Hami0095/ai-architecture/services/archgraph/impact"
	"github.com/Hami0095/ai-architecture/services/archgraph/rules"
)

// HealthResponse is the response for GET /v1/archgraph/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// AnalyzeRequest is the request body for POST /v1/archgraph/analyze.
type AnalyzeRequest struct {
	// ProjectRoot is an absolute directory path. Required.
	ProjectRoot string `json:"project_root" binding:"required"`
}

// AnalyzeResponse is the response for POST /v1/archgraph/analyze.
type AnalyzeResponse struct {
	AnalysisID string             `json:"analysis_id"`
	Summary    graph.GraphSummary `json:"summary"`
	Stats      graph.BuildStats   `json:"stats"`

	// FileErrors lists degraded files as "path: error".
	FileErrors []string `json:"file_errors,omitempty"`
}

// ValidateRequest is the request body for POST /v1/archgraph/validate.
type ValidateRequest struct {
	ProjectRoot string `json:"project_root" binding:"required"`
}

// ValidateResponse is the response for POST /v1/archgraph/validate.
// The status is 200 whether or not the project passes.
type ValidateResponse struct {
	AnalysisID string `json:"analysis_id"`
	rules.ValidationReport
}

// ImpactRequest is the request body for POST /v1/archgraph/impact.
//
// Exactly one of Target and Patch is used; Patch wins when both are set.
type ImpactRequest struct {
	ProjectRoot string `json:"project_root" binding:"required"`

	// Target is a bare or qualified symbol, or a module id.
	Target string `json:"target"`

	// Patch is a unified diff applied against ProjectRoot.
	Patch string `json:"patch"`

	// MaxDepth bounds the search. Default: the analyzer's impact depth.
	MaxDepth int `json:"max_depth" binding:"omitempty,min=1,max=50"`
}

// ImpactResponse is the response for POST /v1/archgraph/impact.
type ImpactResponse struct {
	AnalysisID string        `json:"analysis_id"`
	Scope      *impact.Scope `json:"scope,omitempty"`
	Patch      []PatchImpact `json:"patch,omitempty"`
}

// MetricsRequest is the request body for POST /v1/archgraph/metrics.
type MetricsRequest struct {
	ProjectRoot string `json:"project_root" binding:"required"`

	// Query is a module id, class, function, or fuzzy module fragment.
	Query string `json:"query" binding:"required"`
}

// MetricsResponse is the response for POST /v1/archgraph/metrics.
type MetricsResponse struct {
	AnalysisID string              `json:"analysis_id"`
	Metrics    graph.SymbolMetrics `json:"metrics"`
}

// ScanRequest is the request body for POST /v1/archgraph/scan.
type ScanRequest struct {
	ProjectRoot string `json:"project_root" binding:"required"`
	MaxDepth    int    `json:"max_depth" binding:"omitempty,min=1,max=32"`
}

// ScanResponse is the response for POST /v1/archgraph/scan.
type ScanResponse struct {
	Content string `json:"content"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
