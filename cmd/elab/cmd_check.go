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
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianElab/services/elab/core"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// runCheck drives one core run per batch file. Files are independent
// compilation units, so they run concurrently, each with its own context,
// state cell and trace scope.
func runCheck(cmd *cobra.Command, args []string) {
	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	baseOpts := buildOptions(config, traceClasses)
	depth := maxRecDepth
	if depth == 0 {
		depth = config.MaxRecDepth
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	for _, path := range args {
		path := path
		g.Go(func() error {
			return checkFile(ctx, path, baseOpts, depth)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// checkFile runs one batch through the declaration pipeline.
func checkFile(ctx context.Context, path string, baseOpts options.Options, depth uint32) error {
	batch, err := loadBatch(path)
	if err != nil {
		return err
	}

	opts := baseOpts
	for key, val := range batch.Options {
		opts = opts.Set(name.FromString(key), val)
	}

	start := time.Now()
	added, exc, env := core.Run(ctx, core.RunConfig{
		Options:     opts,
		MaxRecDepth: depth,
		Ref:         path,
		Logger:      logger.Logger,
	}, func(c *core.Context) (int, core.Exception) {
		added := 0
		for _, bd := range batch.Declarations {
			if exc := core.AddAndCompile(c, bd.toDeclaration()); exc != nil {
				return added, exc
			}
			added++
		}
		return added, nil
	})

	if exc != nil {
		return fmt.Errorf("%s: declaration %d of %d failed", path, added+1, len(batch.Declarations))
	}
	logger.Info("batch checked",
		slog.String("file", path),
		slog.Int("declarations", added),
		slog.Int("env_size", env.Size()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", slog.String("error", err.Error()))
	}
}
