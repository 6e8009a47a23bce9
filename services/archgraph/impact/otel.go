// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("archgraph.impact")
	meter  = otel.Meter("archgraph.impact")
)

var (
	queryLatency  metric.Float64Histogram
	queryTotal    metric.Int64Counter
	impactEntries metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		queryLatency, err = meter.Float64Histogram(
			"archgraph_impact_duration_seconds",
			metric.WithDescription("Duration of impact scope queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryTotal, err = meter.Int64Counter(
			"archgraph_impact_total",
			metric.WithDescription("Total number of impact scope queries"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		impactEntries, err = meter.Int64Histogram(
			"archgraph_impact_entries",
			metric.WithDescription("Number of entries returned per impact query"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startScopeSpan(ctx context.Context, direction, target string, maxDepth int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "impact.Tracer."+direction,
		trace.WithAttributes(
			attribute.String("impact.target", target),
			attribute.Int("impact.max_depth", maxDepth),
		),
	)
}

func setScopeSpanResult(span trace.Span, s Scope) {
	span.SetAttributes(
		attribute.Bool("impact.found", s.Found),
		attribute.Int("impact.entries", len(s.Entries)),
	)
}

func recordQueryMetrics(ctx context.Context, direction string, duration time.Duration, s Scope) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.Bool("found", s.Found),
	)
	queryLatency.Record(ctx, duration.Seconds(), attrs)
	queryTotal.Add(ctx, 1, attrs)
	impactEntries.Record(ctx, int64(len(s.Entries)), attrs)
}
