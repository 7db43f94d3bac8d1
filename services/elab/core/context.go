// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package core implements the execution context every elaboration step runs
// inside: the environment reference cell, the recursion-depth fence, the
// per-run trace buffer, the exception taxonomy and the transactional
// declaration pipeline.
//
// One Run owns one Context tree, one state cell and one trace scope. Within
// a run everything is sequential; independent runs (one per file or worker)
// may execute concurrently because they share nothing but the append-only
// trace-class and option registries.
package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/msg"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
	"github.com/AleutianAI/AleutianElab/services/elab/trace"
)

// DefaultMaxRecDepth is the recursion fence applied when neither the run
// configuration nor the maxRecDepth option overrides it.
const DefaultMaxRecDepth uint32 = 512

// OptMaxRecDepth is the option key overriding the recursion fence per run.
var OptMaxRecDepth = name.New("maxRecDepth")

func init() {
	options.Register(options.Decl{
		Name:        OptMaxRecDepth,
		Kind:        options.KindNat,
		Default:     uint64(DefaultMaxRecDepth),
		Description: "maximum recursion depth for elaboration before the recursion fence fails the current subtree",
	})
}

// MetavarContext is the open-metavariable-context placeholder carried by the
// immutable layer. The core threads it; only collaborators interpret it.
type MetavarContext struct{}

// State is the mutable, run-scoped layer: the environment, the fresh-name
// generator and the trace log. Exactly one State exists per run, held behind
// a StateRef.
type State struct {
	Env    *kernel.Environment
	NGen   name.Generator
	Traces trace.Log
}

// StateRef is the single reference cell of one run. All mutation goes
// through take-then-set: take removes the state from the cell, the caller
// rebuilds it, set installs it back. Taking an empty cell means two holders
// overlapped inside one run, which is a programming error and panics.
type StateRef struct {
	mu sync.Mutex
	st *State
}

// NewStateRef creates the run's state cell.
func NewStateRef(st *State) *StateRef {
	return &StateRef{st: st}
}

func (r *StateRef) take() *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st == nil {
		panic("core: state cell taken twice without set")
	}
	st := r.st
	r.st = nil
	return st
}

func (r *StateRef) set(st *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st = st
}

// Context is the immutable, call-scoped layer of the execution core.
//
// Deriving a child context copies the struct; returning from the child
// automatically restores the caller's view, so the recursion fence needs no
// unwind bookkeeping. The pointers to the run's state cell and trace scope
// are shared across the whole context tree of one run.
type Context struct {
	// Ctx carries cancellation and telemetry for collaborator calls.
	Ctx context.Context

	// Ref is the current source reference, used in diagnostics.
	Ref string

	// MaxRecDepth and CurrRecDepth implement the recursion fence.
	// CurrRecDepth <= MaxRecDepth always holds; the fence checks before
	// every increment.
	MaxRecDepth  uint32
	CurrRecDepth uint32

	// Options is the option set of the run.
	Options options.Options

	// MCtx is the open-metavariable-context placeholder.
	MCtx MetavarContext

	// RunID identifies the run in logs and spans.
	RunID string

	logger   *slog.Logger
	state    *StateRef
	scope    *trace.Scope
	checker  kernel.Checker
	compiler kernel.Compiler
}

// WithRef derives a context whose source reference is ref.
func (c *Context) WithRef(ref string) *Context {
	child := *c
	child.Ref = ref
	return &child
}

// Logger returns the run's structured logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Scope returns the run's trace scope.
func (c *Context) Scope() *trace.Scope {
	return c.scope
}

// GetOptions returns the option set (pure projection of the immutable
// layer).
func (c *Context) GetOptions() options.Options {
	return c.Options
}

// GetEnv returns the current environment.
func (c *Context) GetEnv() *kernel.Environment {
	st := c.state.take()
	env := st.Env
	c.state.set(st)
	return env
}

// SetEnv replaces the current environment.
func (c *Context) SetEnv(env *kernel.Environment) {
	st := c.state.take()
	st.Env = env
	c.state.set(st)
}

// ModifyEnv replaces the environment with fn(environment). fn must not call
// back into state operations: the cell is held for the duration.
func (c *Context) ModifyEnv(fn func(*kernel.Environment) *kernel.Environment) {
	st := c.state.take()
	st.Env = fn(st.Env)
	c.state.set(st)
}

// MkFreshID returns the next fresh, run-unique identifier.
func (c *Context) MkFreshID() name.Name {
	st := c.state.take()
	n := st.NGen.Next()
	c.state.set(st)
	return n
}

// GetTraceState returns a snapshot of the top-level trace entries recorded
// so far (pure projection of the mutable layer).
func (c *Context) GetTraceState() []*trace.Node {
	st := c.state.take()
	roots := st.Traces.Roots()
	c.state.set(st)
	out := make([]*trace.Node, len(roots))
	copy(out, roots)
	return out
}

// AddTrace appends a diagnostic under class, provided the class is enabled
// in the run's scope. Disabled classes cost one enablement check and no
// allocation.
func (c *Context) AddTrace(class name.Name, m msg.MessageData) {
	if !c.scope.IsClassEnabled(class) {
		return
	}
	st := c.state.take()
	st.Traces.Add(class, m)
	c.state.set(st)
}

// WithTraceNode runs fn inside a nested trace node under class. When the
// class is disabled the node is not opened and fn runs directly.
func WithTraceNode[T any](c *Context, class name.Name, heading msg.MessageData, fn Action[T]) (T, Exception) {
	if !c.scope.IsClassEnabled(class) {
		return fn(c)
	}
	st := c.state.take()
	st.Traces.OpenNode(class, heading)
	c.state.set(st)

	v, exc := fn(c)

	st = c.state.take()
	st.Traces.CloseNode()
	c.state.set(st)
	return v, exc
}

// Action is one step of elaboration: it runs under a context and either
// produces a value or an exception, never both.
type Action[T any] func(c *Context) (T, Exception)

// CheckRecDepth fails with the distinguished recursion-fence exception when
// the current depth has reached the maximum. State is untouched on failure.
func (c *Context) CheckRecDepth() Exception {
	if c.CurrRecDepth >= c.MaxRecDepth {
		metrics.MaxDepthTrips.Inc()
		return errMaxRecDepth
	}
	return nil
}

// WithIncRecDepth runs action one recursion level deeper.
//
// The fence is checked first: at the limit the action's body never executes
// and the fence exception is returned with no partial effects. Otherwise the
// action runs under a derived context; the caller's depth is restored simply
// by returning, because contexts are passed by value.
func WithIncRecDepth[T any](c *Context, action Action[T]) (T, Exception) {
	if exc := c.CheckRecDepth(); exc != nil {
		var zero T
		return zero, exc
	}
	child := *c
	child.CurrRecDepth++
	return action(&child)
}
