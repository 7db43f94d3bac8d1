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
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianElab/pkg/logging"
)

// --- Global Command Variables ---
var (
	configPath   string
	maxRecDepth  uint32
	traceClasses []string
	metricsAddr  string

	config Config
	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "elab",
		Short: "The AleutianElab proof-checker front end runner",
		Long: `elab drives declaration batches through the elaboration core:
				each batch is checked by the kernel, committed to the environment
				and compiled by the native backend, with hierarchical tracing.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			config, err = loadConfig(configPath)
			if err != nil {
				log.Fatalf("Error loading config: %v", err)
			}
			logger, err = logging.New(logging.Config{
				Level:   logging.ParseLevel(config.LogLevel),
				LogDir:  config.LogDir,
				Service: "elab",
			})
			if err != nil {
				log.Fatalf("Error initializing logging: %v", err)
			}
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check [batch.yaml...]",
		Short: "Check and compile declaration batches, one run per file",
		Args:  cobra.MinimumNArgs(1),
		Run:   runCheck, // Defined in cmd_check.go
	}

	classesCmd = &cobra.Command{
		Use:   "classes",
		Short: "List registered trace classes and their option keys",
		Run:   runClasses, // Defined in cmd_classes.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")
	checkCmd.Flags().Uint32Var(&maxRecDepth, "max-depth", 0, "Recursion fence override (0 = option/default)")
	checkCmd.Flags().StringArrayVar(&traceClasses, "trace", nil, "Enable a trace class (repeatable), e.g. --trace kernel")
	checkCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9464")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(classesCmd)
}
