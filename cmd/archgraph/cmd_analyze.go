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
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Hami0095/ai-architecture/pkg/ux"
	"github.com/Hami0095/ai-architecture/services/archgraph"
	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
)

// hotspotLimit caps the modules listed under "Hotspots".
const hotspotLimit = 5

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [root]",
		Short: "Build the architecture graph and summarize it",
		Long: `Build the module import graph of a project and print a summary.

The summary lists module counts per ownership layer and the riskiest
modules by fan-in, churn, and dependency depth. With --json the full
graph summary (modules, relationships, call graph, layer stats) is
printed instead.

Examples:
  archgraph analyze
  archgraph analyze ./src --json > graph.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			an, err := a.analyze(cmd.Context(), rootArg(args))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printer.JSON(an.Summary())
			}
			renderAnalysis(a.printer, an)
			return nil
		},
	}
}

func renderAnalysis(p *ux.Printer, an *archgraph.Analysis) {
	g := an.Graph()
	stats := an.Result.Stats

	p.Title("Architecture of " + g.Root)
	p.KeyValue([][2]string{
		{"analysis", an.ID},
		{"modules", strconv.Itoa(stats.ModulesCreated)},
		{"relationships", strconv.Itoa(len(g.Edges()))},
		{"files failed", strconv.Itoa(stats.FilesFailed)},
	})

	p.Subtitle("Layers")
	layers := g.LayerStats()
	for _, o := range graph.AllOwnerships() {
		if n := layers[o]; n > 0 {
			p.Bullet(fmt.Sprintf("%-14s %d", o, n))
		}
	}

	if hot := hotspots(g); len(hot) > 0 {
		p.Subtitle("Hotspots")
		for _, h := range hot {
			p.Bullet(fmt.Sprintf("%s [%s] fan_in=%d churn=%d depth=%d",
				h.id, h.risk, h.m.FanIn, h.m.Churn, h.m.DependencyDepth))
		}
	}

	for _, fe := range an.Result.FileErrors {
		p.Warning(fe.Error())
	}
}

type hotspot struct {
	id   string
	m    graph.Metrics
	risk graph.RiskLevel
}

var riskRank = map[graph.RiskLevel]int{graph.RiskHigh: 0, graph.RiskMedium: 1, graph.RiskLow: 2}

// hotspots returns the non-low-risk modules, riskiest first.
func hotspots(g *graph.Graph) []hotspot {
	var out []hotspot
	for _, m := range g.Modules() {
		metrics, ok := m.Metrics()
		if !ok {
			continue
		}
		risk := graph.ClassifyRisk(metrics)
		if risk == graph.RiskLow {
			continue
		}
		out = append(out, hotspot{id: m.ID, m: metrics, risk: risk})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if riskRank[out[i].risk] != riskRank[out[j].risk] {
			return riskRank[out[i].risk] < riskRank[out[j].risk]
		}
		return out[i].m.FanIn > out[j].m.FanIn
	})
	if len(out) > hotspotLimit {
		out = out[:hotspotLimit]
	}
	return out
}
