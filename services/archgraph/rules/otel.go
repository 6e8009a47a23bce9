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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("archgraph.rules")
	meter  = otel.Meter("archgraph.rules")
)

var (
	validationTotal metric.Int64Counter
	violationsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		validationTotal, err = meter.Int64Counter(
			"archgraph_validation_total",
			metric.WithDescription("Total number of validation runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		violationsTotal, err = meter.Int64Counter(
			"archgraph_violations_total",
			metric.WithDescription("Policy violations reported, by rule and severity"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startValidateSpan(ctx context.Context, rules, modules int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rules.Validator.Validate",
		trace.WithAttributes(
			attribute.Int("rules.count", rules),
			attribute.Int("rules.modules", modules),
		),
	)
}

func recordValidation(ctx context.Context, report ValidationReport) {
	if err := initMetrics(); err != nil {
		return
	}
	validationTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", report.Success)))
	for _, v := range report.Violations {
		violationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("rule", v.Rule),
			attribute.String("severity", string(v.Severity)),
		))
	}
}
