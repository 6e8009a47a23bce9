// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Hami0095/ai-architecture/pkg/ux"
	"github.com/Hami0095/ai-architecture/services/archgraph/rules"
)

// rootReport is the validation outcome of one project root.
type rootReport struct {
	Root       string                 `json:"root"`
	AnalysisID string                 `json:"analysis_id"`
	Report     rules.ValidationReport `json:"report"`
}

func newValidateCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [roots...]",
		Short: "Check one or more projects against the architecture policy",
		Long: `Validate projects against the configured rules: import cycles, layered
ownership, and forbidden dependencies from the policy section of the
configuration file.

Roots are analyzed concurrently and reported in argument order. The exit
status is 1 when any report has a Critical violation, or any violation at
all with --strict.

Examples:
  archgraph validate
  archgraph validate services/api services/worker --json
  archgraph validate --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}

			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}

			reports := make([]rootReport, len(roots))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(runtime.NumCPU())
			for i, root := range roots {
				g.Go(func() error {
					an, err := analyzer.AnalyzeProject(ctx, root)
					if err != nil {
						return fmt.Errorf("%s: %w", root, err)
					}
					reports[i] = rootReport{Root: an.Graph().Root, AnalysisID: an.ID, Report: an.Validate(ctx)}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if a.jsonOut {
				if err := a.printer.JSON(reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					renderReport(a.printer, r)
				}
			}

			for _, r := range reports {
				if !r.Report.Success || (strict && len(r.Report.Violations) > 0) {
					return errViolations
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on warnings and info violations too")
	return cmd
}

func renderReport(p *ux.Printer, r rootReport) {
	p.Title("Validation of " + r.Root)
	if len(r.Report.Violations) == 0 {
		p.Success("no violations")
		return
	}
	for _, v := range r.Report.Violations {
		line := fmt.Sprintf("[%s] %s: %s", v.Severity, v.Rule, v.Message)
		switch v.Severity {
		case rules.SeverityCritical:
			p.Error(line)
		case rules.SeverityWarning:
			p.Warning(line)
		default:
			p.Bullet(line)
		}
	}
	p.Muted(fmt.Sprintf("%d violations, %d critical", len(r.Report.Violations), r.Report.CriticalCount()))
}
