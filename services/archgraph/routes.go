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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/Hami0095/ai-architecture/services/archgraph/telemetry"
)

// RegisterRoutes registers the /archgraph endpoints on rg (typically /v1).
//
// Endpoints:
//
//	GET  /v1/archgraph/health   - Health check
//	POST /v1/archgraph/analyze  - Build a graph and return its summary
//	POST /v1/archgraph/validate - Run the policy rules
//	POST /v1/archgraph/impact   - Impact of a symbol or a unified diff
//	POST /v1/archgraph/metrics  - Metrics of a module or symbol
//	POST /v1/archgraph/scan     - Raw-text project scan
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	ag := rg.Group("/archgraph")
	{
		ag.GET("/health", handlers.HandleHealth)
		ag.POST("/analyze", handlers.HandleAnalyze)
		ag.POST("/validate", handlers.HandleValidate)
		ag.POST("/impact", handlers.HandleImpact)
		ag.POST("/metrics", handlers.HandleMetrics)
		ag.POST("/scan", handlers.HandleScan)
	}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName names the otelgin server spans.
	ServiceName string

	// RateLimit is requests per second across all clients. 0 disables.
	RateLimit float64
	RateBurst int
}

// NewRouter builds a gin engine with recovery, tracing, request ids, rate
// limiting, the /v1 routes, and GET /metrics when a Prometheus exporter is
// active.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "archgraph"
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(requestIDMiddleware())
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		router.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}
	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// rateLimitMiddleware rejects requests beyond the limiter with 429.
// Health checks are never limited.
func rateLimitMiddleware(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/v1/archgraph/health" || l.Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "rate limit exceeded",
			Code:  "RATE_LIMITED",
		})
	}
}
