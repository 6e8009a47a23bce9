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

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("archgraph.graph")
	meter  = otel.Meter("archgraph.graph")
)

var (
	buildLatency   metric.Float64Histogram
	buildTotal     metric.Int64Counter
	filesScanned   metric.Int64Counter
	filesFailed    metric.Int64Counter
	modulesCreated metric.Int64Histogram
	churnFallbacks metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments on first use so the global meter
// provider installed by telemetry.Init is picked up.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		if buildLatency, err = meter.Float64Histogram(
			"archgraph_build_duration_seconds",
			metric.WithDescription("Duration of graph build operations"),
			metric.WithUnit("s"),
		); err != nil {
			metricsErr = err
			return
		}

		if buildTotal, err = meter.Int64Counter(
			"archgraph_build_total",
			metric.WithDescription("Total number of graph builds"),
		); err != nil {
			metricsErr = err
			return
		}

		if filesScanned, err = meter.Int64Counter(
			"archgraph_files_scanned_total",
			metric.WithDescription("Source files visited by the builder"),
		); err != nil {
			metricsErr = err
			return
		}

		if filesFailed, err = meter.Int64Counter(
			"archgraph_files_failed_total",
			metric.WithDescription("Source files that degraded to empty modules"),
		); err != nil {
			metricsErr = err
			return
		}

		if modulesCreated, err = meter.Int64Histogram(
			"archgraph_modules_created",
			metric.WithDescription("Modules per build"),
		); err != nil {
			metricsErr = err
			return
		}

		if churnFallbacks, err = meter.Int64Counter(
			"archgraph_churn_fallback_total",
			metric.WithDescription("Churn lookups that fell back to the default value"),
		); err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBuildMetrics(ctx context.Context, duration time.Duration, stats BuildStats, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if success {
		filesScanned.Add(ctx, int64(stats.FilesScanned))
		filesFailed.Add(ctx, int64(stats.FilesFailed))
		modulesCreated.Record(ctx, int64(stats.ModulesCreated))
	}
}

func recordChurnFallback(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	churnFallbacks.Add(ctx, 1)
}

func startBuildSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(attribute.String("archgraph.root", root)),
	)
}

func setBuildSpanResult(span trace.Span, stats BuildStats, err error) {
	span.SetAttributes(
		attribute.Int("archgraph.files_scanned", stats.FilesScanned),
		attribute.Int("archgraph.files_failed", stats.FilesFailed),
		attribute.Int("archgraph.modules", stats.ModulesCreated),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func startQuerySpan(ctx context.Context, queryType string, modules int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Graph."+queryType,
		trace.WithAttributes(
			attribute.String("archgraph.query_type", queryType),
			attribute.Int("archgraph.modules", modules),
		),
	)
}
