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
	"time"

	"github.com/spf13/cobra"

	"github.com/Hami0095/ai-architecture/pkg/logging"
	"github.com/Hami0095/ai-architecture/pkg/ux"
	"github.com/Hami0095/ai-architecture/services/archgraph"
	"github.com/Hami0095/ai-architecture/services/archgraph/config"
	"github.com/Hami0095/ai-architecture/services/archgraph/storage/badger"
	"github.com/Hami0095/ai-architecture/services/archgraph/telemetry"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	// flags
	configPath string
	logLevel   string
	cacheDir   string
	jsonOut    bool

	cfg      *config.Config
	logger   *logging.Logger
	printer  *ux.Printer
	warm     *badger.DB
	shutdown func(context.Context) error
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "archgraph",
		Short: "Audit the architecture of a Python code base",
		Long: `archgraph statically analyzes a source tree into a module import graph.

It reports structural metrics, traces the impact of changing a symbol,
and enforces architectural policy: no import cycles, layered ownership,
and configurable forbidden dependencies.

Configuration is read from .archgraph.yaml in the working directory,
or from --config.`,
		Version:           archgraph.ServiceVersion,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to the configuration file (default .archgraph.yaml if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.cacheDir, "cache-dir", "",
		"Directory for the persistent scan cache")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false,
		"Output as JSON for scripting")

	root.AddCommand(
		newAnalyzeCmd(a),
		newValidateCmd(a),
		newImpactCmd(a),
		newMetricsCmd(a),
		newScanCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
	)
	return root, a
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.cacheDir != "" {
		cfg.Cache.Dir = a.cacheDir
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "archgraph",
		JSON:    cfg.Log.JSON,
		Output:  cmd.ErrOrStderr(),
	})
	a.printer = ux.NewPrinter(cmd.OutOrStdout())

	tcfg := telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: archgraph.ServiceVersion,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricsExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   true,
	}
	// Nothing scrapes a one-shot command.
	if cmd.Name() != "serve" && tcfg.MetricExporter == "prometheus" {
		tcfg.MetricExporter = "none"
	}
	a.shutdown, err = telemetry.Init(cmd.Context(), tcfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	return nil
}

// analyzer builds an Analyzer from the loaded configuration, opening the
// badger scan cache when a cache directory is configured.
func (a *app) analyzer(extra ...archgraph.Option) (*archgraph.Analyzer, error) {
	if a.cfg.Cache.Dir != "" && a.warm == nil {
		dbCfg := badger.DefaultConfig(a.cfg.Cache.Dir)
		dbCfg.Logger = a.logger.Slog()
		db, err := badger.Open(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open scan cache: %w", err)
		}
		a.warm = db
	}
	return archgraph.NewAnalyzerFromConfig(a.cfg, a.warm, a.logger.Slog(), extra...)
}

func (a *app) analyze(ctx context.Context, root string) (*archgraph.Analysis, error) {
	analyzer, err := a.analyzer()
	if err != nil {
		return nil, err
	}
	return analyzer.AnalyzeProject(ctx, root)
}

// close releases resources opened by setup. Safe to call when setup did
// not run.
func (a *app) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.shutdown(ctx)
		cancel()
	}
	if a.warm != nil {
		_ = a.warm.Close()
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
