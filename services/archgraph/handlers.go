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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
	"github.com/Hami0095/ai-architecture/services/archgraph/impact"
	"github.com/Hami0095/ai-architecture/services/archgraph/scan"
	"github.com/Hami0095/ai-architecture/services/archgraph/telemetry"
)

const requestIDHeader = "X-Request-ID"

// Handlers contains the HTTP handlers for the engine. Every request
// builds its own graph.
type Handlers struct {
	analyzer *Analyzer
	logger   *slog.Logger
}

// NewHandlers creates handlers backed by analyzer.
func NewHandlers(analyzer *Analyzer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{analyzer: analyzer, logger: logger}
}

// HandleHealth handles GET /v1/archgraph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// HandleAnalyze handles POST /v1/archgraph/analyze.
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: invalid body or root
//	403 Forbidden: root outside the allowed roots
//	500 Internal Server Error: build failure
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAnalyze")

	var req AnalyzeRequest
	if !h.bind(c, logger, &req) {
		return
	}
	an, ok := h.analyze(c, logger, req.ProjectRoot)
	if !ok {
		return
	}

	resp := AnalyzeResponse{
		AnalysisID: an.ID,
		Summary:    an.Summary(),
		Stats:      an.Result.Stats,
	}
	for _, fe := range an.Result.FileErrors {
		resp.FileErrors = append(resp.FileErrors, fe.Error())
	}
	c.JSON(http.StatusOK, resp)
}

// HandleValidate handles POST /v1/archgraph/validate.
func (h *Handlers) HandleValidate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleValidate")

	var req ValidateRequest
	if !h.bind(c, logger, &req) {
		return
	}
	an, ok := h.analyze(c, logger, req.ProjectRoot)
	if !ok {
		return
	}

	report := an.Validate(c.Request.Context())
	logger.Info("validation complete",
		slog.Bool("success", report.Success),
		slog.Int("violations", len(report.Violations)),
	)
	c.JSON(http.StatusOK, ValidateResponse{AnalysisID: an.ID, ValidationReport: report})
}

// HandleImpact handles POST /v1/archgraph/impact.
//
// An unknown target is not an error: the scope comes back with found=false.
func (h *Handlers) HandleImpact(c *gin.Context) {
	logger := h.requestLogger(c, "HandleImpact")

	var req ImpactRequest
	if !h.bind(c, logger, &req) {
		return
	}
	if req.Target == "" && req.Patch == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrEmptyTarget.Error(), Code: "INVALID_REQUEST"})
		return
	}
	depth := req.MaxDepth
	if depth == 0 {
		depth = h.analyzer.ImpactDepth()
	}

	an, ok := h.analyze(c, logger, req.ProjectRoot)
	if !ok {
		return
	}

	resp := ImpactResponse{AnalysisID: an.ID}
	if req.Patch != "" {
		pis, err := an.PatchImpact(c.Request.Context(), []byte(req.Patch), depth)
		if err != nil {
			logger.Warn("invalid patch", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_PATCH"})
			return
		}
		resp.Patch = pis
	} else {
		scope := an.Impact(c.Request.Context(), req.Target, depth)
		resp.Scope = &scope
	}
	c.JSON(http.StatusOK, resp)
}

// HandleMetrics handles POST /v1/archgraph/metrics.
//
// Response:
//
//	200 OK: MetricsResponse
//	404 Not Found: nothing matched the query
func (h *Handlers) HandleMetrics(c *gin.Context) {
	logger := h.requestLogger(c, "HandleMetrics")

	var req MetricsRequest
	if !h.bind(c, logger, &req) {
		return
	}
	an, ok := h.analyze(c, logger, req.ProjectRoot)
	if !ok {
		return
	}

	m, found := an.SymbolMetrics(req.Query)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no module or symbol matches the query",
			Code:  "NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, MetricsResponse{AnalysisID: an.ID, Metrics: m})
}

// HandleScan handles POST /v1/archgraph/scan.
func (h *Handlers) HandleScan(c *gin.Context) {
	logger := h.requestLogger(c, "HandleScan")

	var req ScanRequest
	if !h.bind(c, logger, &req) {
		return
	}
	if !filepath.IsAbs(req.ProjectRoot) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrRelativePath.Error(), Code: "INVALID_PATH"})
		return
	}

	out, err := h.analyzer.Scan(c.Request.Context(), req.ProjectRoot, req.MaxDepth)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, ScanResponse{Content: out})
}

func (h *Handlers) bind(c *gin.Context, logger *slog.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *Handlers) analyze(c *gin.Context, logger *slog.Logger, root string) (*Analysis, bool) {
	if !filepath.IsAbs(root) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrRelativePath.Error(), Code: "INVALID_PATH"})
		return nil, false
	}
	an, err := h.analyzer.AnalyzeProject(c.Request.Context(), root)
	if err != nil {
		h.writeError(c, logger, err)
		return nil, false
	}
	return an, true
}

func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "ANALYSIS_FAILED"
	switch {
	case errors.Is(err, graph.ErrRootNotFound), errors.Is(err, scan.ErrRootNotFound):
		status, code = http.StatusBadRequest, "ROOT_NOT_FOUND"
	case errors.Is(err, graph.ErrRootNotDirectory), errors.Is(err, scan.ErrRootNotDirectory):
		status, code = http.StatusBadRequest, "ROOT_NOT_DIRECTORY"
	case errors.Is(err, ErrRootNotAllowed):
		status, code = http.StatusForbidden, "ROOT_NOT_ALLOWED"
	case errors.Is(err, impact.ErrInvalidPatch):
		status, code = http.StatusBadRequest, "INVALID_PATCH"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "ANALYSIS_TIMEOUT"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	} else {
		logger.Warn("request rejected", slog.String("error", err.Error()), slog.String("code", code))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	logger := h.logger.With(
		slog.String("request_id", getOrCreateRequestID(c)),
		slog.String("handler", handler),
	)
	return telemetry.LoggerWithTrace(c.Request.Context(), logger)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = c.GetString(requestIDHeader)
	}
	if requestID == "" {
		requestID = uuid.NewString()
		c.Set(requestIDHeader, requestID)
	}
	c.Header(requestIDHeader, requestID)
	return requestID
}
