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

	"github.com/spf13/cobra"
)

func newScanCmd(a *app) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Dump a size-bounded text rendering of the source tree",
		Long: `Render every source file under root, up to --depth directory levels,
as one text document suitable for pasting into a review or a prompt.

Renderings are cached; set cache.dir or --cache-dir to keep them across
runs.

Examples:
  archgraph scan
  archgraph scan ./src --depth 2 > tree.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth <= 0 {
				depth = a.cfg.Analysis.ScanDepth
			}
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			content, err := analyzer.Scan(cmd.Context(), rootArg(args), depth)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printer.JSON(map[string]string{"content": content})
			}
			_, err = fmt.Fprint(a.printer.Writer(), content)
			return err
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum directory depth (default from config)")
	return cmd
}
