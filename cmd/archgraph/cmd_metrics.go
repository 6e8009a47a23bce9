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
	"strconv"

	"github.com/spf13/cobra"
)

func newMetricsCmd(a *app) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "metrics QUERY",
		Short: "Show metrics and risk for a module, class, or function",
		Long: `Look up QUERY as a module id, a qualified symbol, a bare symbol, or a
case-insensitive fragment of a module id, and print the metrics of the
owning module with its risk level.

Exits with status 1 when nothing matches.

Examples:
  archgraph metrics pkg.core.engine
  archgraph metrics Engine.run --root ./src --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			an, err := a.analyze(cmd.Context(), root)
			if err != nil {
				return err
			}
			sm, ok := an.SymbolMetrics(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", errNotFound, args[0])
			}
			if a.jsonOut {
				return a.printer.JSON(sm)
			}

			p := a.printer
			p.Title(fmt.Sprintf("%s (%s match)", sm.Module, sm.Match))
			rows := [][2]string{}
			if sm.Symbol != "" {
				rows = append(rows, [2]string{"symbol", sm.Symbol})
			}
			rows = append(rows,
				[2]string{"risk", string(sm.Risk)},
				[2]string{"fan_in", strconv.Itoa(sm.FanIn)},
				[2]string{"fan_out", strconv.Itoa(sm.FanOut)},
				[2]string{"depth", strconv.Itoa(sm.Depth)},
				[2]string{"churn", strconv.Itoa(sm.Churn)},
				[2]string{"complexity", strconv.Itoa(sm.Complexity)},
			)
			p.KeyValue(rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Project root to analyze")
	return cmd
}
