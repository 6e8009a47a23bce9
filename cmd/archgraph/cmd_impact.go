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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hami0095/ai-architecture/pkg/ux"
	"github.com/Hami0095/ai-architecture/services/archgraph"
	"github.com/Hami0095/ai-architecture/services/archgraph/impact"
)

func newImpactCmd(a *app) *cobra.Command {
	var (
		root      string
		depth     int
		patchPath string
		deps      bool
	)

	cmd := &cobra.Command{
		Use:   "impact [target]",
		Short: "Show what is affected by changing a symbol or applying a patch",
		Long: `Trace the blast radius of a change.

TARGET may be a bare symbol ("handle"), a qualified symbol
("pkg.api.handle", "pkg.api.Service.run"), or a module id. Callers are
followed backwards up to --depth levels; modules importing a module
target are reported as "Module Import" entries.

With --patch, a unified diff is mapped onto the graph and every touched
symbol is traced. Use "-" to read the diff from stdin.

With --dependencies, TARGET must be a module id and the modules it
transitively imports are listed instead.

Examples:
  archgraph impact handle --depth 2
  git diff | archgraph impact --patch -
  archgraph impact pkg.core.engine --dependencies`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && patchPath == "" {
				return errors.New("a target or --patch is required")
			}
			if depth <= 0 {
				depth = a.cfg.Analysis.ImpactDepth
			}

			an, err := a.analyze(cmd.Context(), root)
			if err != nil {
				return err
			}

			if patchPath != "" {
				patch, err := readPatch(cmd.InOrStdin(), patchPath)
				if err != nil {
					return err
				}
				results, err := an.PatchImpact(cmd.Context(), patch, depth)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printer.JSON(results)
				}
				renderPatchImpact(a.printer, results)
				return nil
			}

			var scope impact.Scope
			if deps {
				scope = an.Dependencies(cmd.Context(), args[0], depth)
			} else {
				scope = an.Impact(cmd.Context(), args[0], depth)
			}
			if a.jsonOut {
				return a.printer.JSON(scope)
			}
			renderScope(a.printer, scope, deps)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Project root to analyze")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum trace depth (default from config)")
	cmd.Flags().StringVar(&patchPath, "patch", "", "Unified diff file, or - for stdin")
	cmd.Flags().BoolVar(&deps, "dependencies", false, "List what TARGET depends on instead")
	return cmd
}

func readPatch(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}
	return data, nil
}

func renderScope(p *ux.Printer, s impact.Scope, deps bool) {
	if deps {
		p.Title("Dependencies of " + s.Target)
	} else {
		p.Title("Impact of " + s.Target)
	}
	switch {
	case !s.Found:
		p.Warning(s.Target + " not found in the graph")
	case len(s.Entries) == 0:
		p.Success("nothing else is affected")
	default:
		for _, e := range s.Entries {
			p.Bullet(fmt.Sprintf("[%d] %s (%s)", e.Depth, e.Name, e.File))
		}
	}
}

func renderPatchImpact(p *ux.Printer, results []archgraph.PatchImpact) {
	if len(results) == 0 {
		p.Success("patch touches no analyzed module")
		return
	}
	for _, r := range results {
		p.Subtitle(fmt.Sprintf("%s (%s)", r.Change.Module, r.Change.File))
		for _, s := range r.Scopes {
			renderScope(p, s, false)
		}
	}
}
