// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
	"github.com/AleutianAI/AleutianElab/services/elab/trace"
)

// freshPrefix namespaces the per-run fresh-name generator.
var freshPrefix = name.New("_uniq")

// RunConfig configures one top-level run. The zero value is usable: empty
// options, empty environment, reference collaborators, default fence,
// stdout/stderr outputs.
type RunConfig struct {
	// Options is the option set bound for the run (trace.* keys included).
	Options options.Options

	// Env is the initial environment. Nil means empty.
	Env *kernel.Environment

	// MaxRecDepth overrides the recursion fence. Zero means "use the
	// maxRecDepth option, or the default".
	MaxRecDepth uint32

	// Ref is the initial source reference for diagnostics.
	Ref string

	// Checker and Compiler are the collaborator implementations. Nil
	// selects the in-memory reference implementations.
	Checker  kernel.Checker
	Compiler kernel.Compiler

	// Logger receives structured run logs. Nil selects slog.Default().
	Logger *slog.Logger

	// TraceOut receives the flushed trace log (default os.Stdout).
	// ErrOut receives the rendered exception, if any (default os.Stderr).
	TraceOut io.Writer
	ErrOut   io.Writer
}

func (cfg *RunConfig) fillDefaults() {
	if cfg.Checker == nil {
		cfg.Checker = kernel.NewRefChecker()
	}
	if cfg.Compiler == nil {
		cfg.Compiler = kernel.NewRefCompiler()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TraceOut == nil {
		cfg.TraceOut = os.Stdout
	}
	if cfg.ErrOut == nil {
		cfg.ErrOut = os.Stderr
	}
	if cfg.MaxRecDepth == 0 {
		d := cfg.Options.GetUint(OptMaxRecDepth, uint64(DefaultMaxRecDepth))
		if d == 0 || d > 1<<31 {
			d = uint64(DefaultMaxRecDepth)
		}
		cfg.MaxRecDepth = uint32(d)
	}
}

// Run drives one top-level run of the execution core.
//
// It builds the run's context, state cell and trace scope, executes action,
// flushes the trace log to cfg.TraceOut (depth-first, in recording order)
// and renders any exception to cfg.ErrOut. The final environment is returned
// in both the success and the failure case — a failing action may have
// committed declarations before failing, and those commits stand.
//
// Runs are independent: any number may execute concurrently as long as each
// gets its own RunConfig-derived context, which this function guarantees.
func Run[T any](ctx context.Context, cfg RunConfig, action Action[T]) (T, Exception, *kernel.Environment) {
	cfg.fillDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.NewString()
	logger := cfg.Logger.With(slog.String("run_id", runID))

	stateRef := NewStateRef(&State{
		Env:  cfg.Env,
		NGen: name.NewGenerator(freshPrefix),
	})
	scope := trace.NewScope()
	restore := scope.Enter(cfg.Env, cfg.Options, nil)
	defer restore()

	c := &Context{
		Ctx:         ctx,
		Ref:         cfg.Ref,
		MaxRecDepth: cfg.MaxRecDepth,
		Options:     cfg.Options,
		RunID:       runID,
		logger:      logger,
		state:       stateRef,
		scope:       scope,
		checker:     cfg.Checker,
		compiler:    cfg.Compiler,
	}

	logger.Debug("run started",
		slog.String("ref", cfg.Ref),
		slog.Int("max_rec_depth", int(cfg.MaxRecDepth)),
	)
	start := time.Now()

	value, exc := action(c)

	st := stateRef.take()
	finalEnv := st.Env
	if err := st.Traces.Flush(cfg.TraceOut); err != nil {
		logger.Warn("trace flush failed", slog.String("error", err.Error()))
	}
	stateRef.set(st)

	if exc != nil {
		fmt.Fprintln(cfg.ErrOut, Render(exc))
		logger.Debug("run failed",
			slog.Duration("duration", time.Since(start)),
		)
		return value, exc, finalEnv
	}
	logger.Debug("run completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("env_size", finalEnv.Size()),
	)
	return value, nil, finalEnv
}
