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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Hami0095/ai-architecture/services/archgraph"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr         string
		allowedRoots []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Start the archgraph HTTP API.

Endpoints live under /v1/archgraph: health, analyze, validate, impact,
metrics, and scan. Prometheus metrics are exposed at /metrics when the
prometheus metrics exporter is configured.

Every request analyzes its project root from scratch. Restrict which
roots callers may analyze with --allow-root.

Examples:
  archgraph serve
  archgraph serve --addr 127.0.0.1:9000 --allow-root /srv/repos`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			analyzer, err := a.analyzer(archgraph.WithAllowedRoots(allowedRoots...))
			if err != nil {
				return err
			}

			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			logger := a.logger.Slog()
			router := archgraph.NewRouter(archgraph.NewHandlers(analyzer, logger), archgraph.RouterOptions{
				ServiceName: a.cfg.Telemetry.ServiceName,
				RateLimit:   a.cfg.Server.RateLimit,
				RateBurst:   a.cfg.Server.RateBurst,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				logger.Info("archgraph API listening", slog.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringSliceVar(&allowedRoots, "allow-root", nil, "Restrict analysis to roots under this prefix (repeatable)")
	return cmd
}
