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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/msg"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/trace"
)

// Trace classes of the declaration pipeline. Enabling "kernel" or "compiler"
// covers the respective subclasses by prefix.
var (
	TraceKernel    = name.New("kernel")
	TraceKernelAdd = name.Str(TraceKernel, "add")
	TraceCompiler  = name.New("compiler")
	TraceCompile   = name.Str(TraceCompiler, "compile")
)

func init() {
	trace.RegisterClass(TraceKernel)
	trace.RegisterClass(TraceKernelAdd)
	trace.RegisterClass(TraceCompiler)
	trace.RegisterClass(TraceCompile)
}

// AddDecl submits decl to the checker and, on success, commits the new
// environment to the run's state.
//
// The check itself is pure: on rejection the state is untouched and the
// rejection comes back as a KernelError value.
func AddDecl(c *Context, decl kernel.Declaration) Exception {
	env := c.GetEnv()
	newEnv, kerr := c.checker.AddDecl(env, decl)
	if kerr != nil {
		metrics.KernelRejections.Inc()
		c.logger.Debug("kernel rejected declaration",
			slog.String("run_id", c.RunID),
			slog.String("decl", decl.Name.String()),
			slog.String("reason", kerr.Error()),
		)
		return &KernelError{Env: env, Err: kerr}
	}
	c.SetEnv(newEnv)
	metrics.DeclsAdded.Inc()
	c.AddTrace(TraceKernelAdd, msg.Compose(
		msg.Text("added "), msg.Text(decl.Kind.String()), msg.Text(" "), msg.OfName(decl.Name),
	))
	return nil
}

// CompileDecl hands decl to the native backend and commits the updated
// environment on success. The environment the backend sees already reflects
// any prior AddDecl commit.
//
// Backend failures that are kernel rejections surface as KernelError;
// anything else becomes an ElabError carrying the backend's description.
func CompileDecl(c *Context, decl kernel.Declaration) Exception {
	env := c.GetEnv()
	newEnv, err := c.compiler.CompileDecl(env, c.Options, decl)
	if err != nil {
		metrics.CompileFailures.Inc()
		c.logger.Debug("backend failed to compile declaration",
			slog.String("run_id", c.RunID),
			slog.String("decl", decl.Name.String()),
			slog.String("error", err.Error()),
		)
		if kerr, ok := err.(*kernel.Error); ok {
			return &KernelError{Env: env, Err: kerr}
		}
		return &ElabError{Msg: msg.OfError(err)}
	}
	c.SetEnv(newEnv)
	c.AddTrace(TraceCompile, msg.Compose(
		msg.Text("compiled "), msg.OfName(decl.Name),
	))
	return nil
}

// AddAndCompile is the two-phase commit of the declaration pipeline: check,
// commit, then compile.
//
// The phases are deliberately asymmetric. A checker rejection leaves the
// environment exactly as it was before the call. A backend failure after a
// successful check does NOT roll the check back: the declaration stays in
// the environment, checked but uncompiled. Callers must preserve this
// asymmetry, not repair it.
func AddAndCompile(c *Context, decl kernel.Declaration) Exception {
	tracer := otel.Tracer("aleutian-elab/core")
	ctx, span := tracer.Start(c.Ctx, "core.AddAndCompile")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", c.RunID),
		attribute.String("decl.name", decl.Name.String()),
		attribute.String("decl.kind", decl.Kind.String()),
	)
	child := *c
	child.Ctx = ctx

	start := time.Now()
	defer func() {
		metrics.AddCompileDuration.Observe(time.Since(start).Seconds())
	}()

	if exc := AddDecl(&child, decl); exc != nil {
		span.SetStatus(codes.Error, "kernel rejection")
		return exc
	}
	if exc := CompileDecl(&child, decl); exc != nil {
		span.SetStatus(codes.Error, "compile failure")
		return exc
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
