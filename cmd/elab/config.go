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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// Config is the optional config file of the elab CLI.
type Config struct {
	// LogLevel is debug/info/warn/error.
	LogLevel string `yaml:"log_level"`

	// LogDir enables file logging when set.
	LogDir string `yaml:"log_dir"`

	// MaxRecDepth overrides the recursion fence (0 = option/default).
	MaxRecDepth uint32 `yaml:"max_rec_depth"`

	// Options are default option bindings, e.g. "trace.kernel: true".
	Options map[string]any `yaml:"options"`

	// MetricsAddr exposes Prometheus metrics on this address when set,
	// e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr"`
}

// loadConfig reads path if it exists. A missing file yields the zero config;
// a malformed file is an error.
func loadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// buildOptions folds the config file options and the --trace flags into one
// option set.
func buildOptions(cfg Config, traceClasses []string) options.Options {
	opts := options.Empty()
	for key, val := range cfg.Options {
		opts = opts.Set(name.FromString(key), val)
	}
	for _, cls := range traceClasses {
		key := name.FromString(cls).ReplacePrefix(name.Anonymous(), name.New("trace"))
		opts = opts.Set(key, true)
	}
	return opts
}
