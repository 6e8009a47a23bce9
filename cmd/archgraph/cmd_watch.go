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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hami0095/ai-architecture/services/archgraph"
	"github.com/Hami0095/ai-architecture/services/archgraph/config"
	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
	"github.com/Hami0095/ai-architecture/services/archgraph/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Re-validate a project whenever its sources change",
		Long: `Validate a project, then watch it and validate again after every batch
of source changes. Runs until interrupted.

Examples:
  archgraph watch
  archgraph watch ./src --debounce 1s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(rootArg(args))
			if err != nil {
				return err
			}
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			logger := a.logger.Slog()

			if err := a.revalidate(cmd.Context(), analyzer, root); err != nil {
				return err
			}

			opts := watch.DefaultOptions()
			opts.Debounce = debounce
			opts.Names = []string{config.FileName, ".gitignore"}
			opts.IgnoreDirs = append(append(opts.IgnoreDirs, graph.DefaultIgnoreDirs...), a.cfg.Analysis.IgnoreDirs...)
			opts.Logger = logger

			w, err := watch.New(root, func(ctx context.Context, changes []watch.Change) {
				for _, c := range changes {
					logger.Debug("source changed", slog.String("path", c.Path), slog.String("op", c.Op.String()))
				}
				a.printer.Muted(fmt.Sprintf("%d file(s) changed", len(changes)))
				if err := a.revalidate(ctx, analyzer, root); err != nil {
					logger.Error("revalidation failed", slog.String("error", err.Error()))
				}
			}, opts)
			if err != nil {
				return err
			}

			a.printer.Muted("watching " + root)
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before re-validating")
	return cmd
}

func (a *app) revalidate(ctx context.Context, analyzer *archgraph.Analyzer, root string) error {
	an, err := analyzer.AnalyzeProject(ctx, root)
	if err != nil {
		return err
	}
	r := rootReport{Root: an.Graph().Root, AnalysisID: an.ID, Report: an.Validate(ctx)}
	if a.jsonOut {
		return a.printer.JSON(r)
	}
	renderReport(a.printer, r)
	return nil
}
