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
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/msg"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// runQuiet runs action with outputs captured, returning the trace and error
// output alongside the run result.
func runQuiet[T any](t *testing.T, cfg RunConfig, action Action[T]) (T, Exception, *kernel.Environment, string, string) {
	t.Helper()
	var traceOut, errOut bytes.Buffer
	cfg.TraceOut = &traceOut
	cfg.ErrOut = &errOut
	v, exc, env := Run(context.Background(), cfg, action)
	return v, exc, env, traceOut.String(), errOut.String()
}

func defn(n string, uses ...string) kernel.Declaration {
	d := kernel.Declaration{Name: kernel.MustName(n), Kind: kernel.KindDefinition}
	for _, u := range uses {
		d.Uses = append(d.Uses, kernel.MustName(u))
	}
	return d
}

func traceOpt(class string) name.Name {
	return name.FromString("trace." + class)
}

func TestRecursionFence(t *testing.T) {
	t.Run("fourth nested call trips with maxDepth 3", func(t *testing.T) {
		executed := 0
		var nest func(c *Context, remaining int) (int, Exception)
		nest = func(c *Context, remaining int) (int, Exception) {
			return WithIncRecDepth(c, func(c *Context) (int, Exception) {
				executed++
				if remaining == 1 {
					return executed, nil
				}
				return nest(c, remaining-1)
			})
		}

		_, exc, _, _, _ := runQuiet(t, RunConfig{MaxRecDepth: 3}, func(c *Context) (int, Exception) {
			return nest(c, 4)
		})
		require.NotNil(t, exc)
		assert.True(t, IsMaxRecDepth(exc))
		assert.Equal(t, 3, executed, "the fourth body never executes")
	})

	t.Run("three nested calls succeed and keep their effects", func(t *testing.T) {
		var nest func(c *Context, remaining int) (int, Exception)
		nest = func(c *Context, remaining int) (int, Exception) {
			return WithIncRecDepth(c, func(c *Context) (int, Exception) {
				if exc := AddDecl(c, defn("depth."+strings.Repeat("x", remaining))); exc != nil {
					return 0, exc
				}
				if remaining == 1 {
					return int(c.CurrRecDepth), nil
				}
				return nest(c, remaining-1)
			})
		}

		depth, exc, env, _, _ := runQuiet(t, RunConfig{MaxRecDepth: 3}, func(c *Context) (int, Exception) {
			return nest(c, 3)
		})
		require.Nil(t, exc)
		assert.Equal(t, 3, depth)
		// Environment mutations performed inside the nested calls are
		// visible afterward.
		assert.True(t, env.Contains(kernel.MustName("depth.xxx")))
		assert.True(t, env.Contains(kernel.MustName("depth.xx")))
		assert.True(t, env.Contains(kernel.MustName("depth.x")))
	})

	t.Run("depth restores on return", func(t *testing.T) {
		_, exc, _, _, _ := runQuiet(t, RunConfig{MaxRecDepth: 2}, func(c *Context) (int, Exception) {
			for i := 0; i < 5; i++ {
				// Sibling calls at the same level never accumulate depth.
				_, e := WithIncRecDepth(c, func(c *Context) (int, Exception) {
					return int(c.CurrRecDepth), nil
				})
				if e != nil {
					return 0, e
				}
			}
			return 0, nil
		})
		assert.Nil(t, exc)
	})

	t.Run("fence failure has no partial effects", func(t *testing.T) {
		bodyRan := false
		_, exc, env, _, _ := runQuiet(t, RunConfig{MaxRecDepth: 1}, func(c *Context) (int, Exception) {
			return WithIncRecDepth(c, func(c *Context) (int, Exception) {
				return WithIncRecDepth(c, func(c *Context) (int, Exception) {
					bodyRan = true
					return 0, AddDecl(c, defn("never"))
				})
			})
		})
		require.NotNil(t, exc)
		assert.True(t, IsMaxRecDepth(exc))
		assert.False(t, bodyRan)
		assert.Equal(t, 0, env.Size())
	})
}

func TestMkFreshID(t *testing.T) {
	const k = 500
	ids, exc, _, _, _ := runQuiet(t, RunConfig{}, func(c *Context) ([]name.Name, Exception) {
		out := make([]name.Name, 0, k)
		for i := 0; i < k; i++ {
			out = append(out, c.MkFreshID())
		}
		return out, nil
	})
	require.Nil(t, exc)
	require.Len(t, ids, k)
	seen := make(map[string]bool, k)
	for _, id := range ids {
		require.False(t, seen[id.String()], "fresh ids must be pairwise distinct")
		seen[id.String()] = true
		assert.True(t, id.IsInternal())
	}
}

func TestEnvOps(t *testing.T) {
	_, exc, env, _, _ := runQuiet(t, RunConfig{}, func(c *Context) (struct{}, Exception) {
		require.Equal(t, 0, c.GetEnv().Size())

		if exc := AddDecl(c, defn("one")); exc != nil {
			return struct{}{}, exc
		}
		require.Equal(t, 1, c.GetEnv().Size())

		c.ModifyEnv(func(e *kernel.Environment) *kernel.Environment {
			ne, kerr := kernel.NewRefChecker().AddDecl(e, defn("two"))
			require.Nil(t, kerr)
			return ne
		})
		require.Equal(t, 2, c.GetEnv().Size())
		return struct{}{}, nil
	})
	require.Nil(t, exc)
	assert.True(t, env.Contains(kernel.MustName("one")))
	assert.True(t, env.Contains(kernel.MustName("two")))
}

func TestPipeline_AddDecl(t *testing.T) {
	t.Run("commit on success", func(t *testing.T) {
		_, exc, env, _, _ := runQuiet(t, RunConfig{}, func(c *Context) (struct{}, Exception) {
			return struct{}{}, AddDecl(c, defn("Nat"))
		})
		require.Nil(t, exc)
		assert.True(t, env.Contains(kernel.MustName("Nat")))
	})

	t.Run("state untouched on rejection", func(t *testing.T) {
		_, exc, env, _, _ := runQuiet(t, RunConfig{}, func(c *Context) (struct{}, Exception) {
			if exc := AddDecl(c, defn("Nat")); exc != nil {
				return struct{}{}, exc
			}
			exc := AddDecl(c, defn("uses.ghost", "ghost"))
			require.NotNil(t, exc)
			return struct{}{}, exc
		})
		require.NotNil(t, exc)
		kexc, ok := exc.(*KernelError)
		require.True(t, ok)
		assert.Equal(t, kernel.ReasonUnknownReference, kexc.Err.Reason)
		assert.True(t, env.Contains(kernel.MustName("Nat")), "earlier commit stands")
		assert.False(t, env.Contains(kernel.MustName("uses.ghost")))
	})
}

func TestPipeline_AddAndCompileAsymmetry(t *testing.T) {
	// A declaration that passes the checker but fails the backend stays in
	// the environment, checked but uncompiled.
	backendErr := errors.New("codegen refused")
	comp := &kernel.RefCompiler{FailOn: func(d kernel.Declaration) error {
		if d.Name.Equal(kernel.MustName("bad")) {
			return backendErr
		}
		return nil
	}}

	_, exc, env, _, errOut := runQuiet(t, RunConfig{Compiler: comp}, func(c *Context) (struct{}, Exception) {
		if exc := AddAndCompile(c, defn("good")); exc != nil {
			return struct{}{}, exc
		}
		return struct{}{}, AddAndCompile(c, defn("bad"))
	})

	require.NotNil(t, exc)
	elab, ok := exc.(*ElabError)
	require.True(t, ok, "backend failure surfaces as ElabError")
	assert.Equal(t, "codegen refused", msg.ToString(elab.Msg))
	assert.Contains(t, errOut, "codegen refused")

	info, found := env.Find(kernel.MustName("bad"))
	require.True(t, found, "addDecl's effect is retained")
	assert.False(t, info.Compiled, "compileDecl's effect is not")

	good, found := env.Find(kernel.MustName("good"))
	require.True(t, found)
	assert.True(t, good.Compiled)
}

func TestPipeline_KernelRejectionKeepsEnv(t *testing.T) {
	_, exc, env, _, _ := runQuiet(t, RunConfig{}, func(c *Context) (struct{}, Exception) {
		if exc := AddAndCompile(c, defn("a")); exc != nil {
			return struct{}{}, exc
		}
		return struct{}{}, AddAndCompile(c, defn("a")) // duplicate
	})
	require.NotNil(t, exc)
	_, ok := exc.(*KernelError)
	require.True(t, ok)
	assert.Equal(t, 2, env.Size(), "one decl plus its compiled shadow; rejection adds nothing")
}

func TestTracing_ThroughRun(t *testing.T) {
	t.Run("disabled class records nothing", func(t *testing.T) {
		_, exc, _, traceOut, _ := runQuiet(t, RunConfig{}, func(c *Context) (struct{}, Exception) {
			c.AddTrace(TraceKernelAdd, msg.Text("invisible"))
			return struct{}{}, nil
		})
		require.Nil(t, exc)
		assert.Empty(t, traceOut)
	})

	t.Run("enabled class flushes to trace output", func(t *testing.T) {
		opts := options.Empty().Set(traceOpt("kernel"), true)
		_, exc, _, traceOut, _ := runQuiet(t, RunConfig{Options: opts}, func(c *Context) (struct{}, Exception) {
			return struct{}{}, AddAndCompile(c, defn("traced"))
		})
		require.Nil(t, exc)
		assert.Contains(t, traceOut, "[kernel.add] added definition traced")
		assert.NotContains(t, traceOut, "compiled", "compiler class not enabled")
	})

	t.Run("enabling the parent enables subclasses", func(t *testing.T) {
		opts := options.Empty().
			Set(traceOpt("kernel"), true).
			Set(traceOpt("compiler"), true)
		_, _, _, traceOut, _ := runQuiet(t, RunConfig{Options: opts}, func(c *Context) (struct{}, Exception) {
			return struct{}{}, AddAndCompile(c, defn("both"))
		})
		assert.Contains(t, traceOut, "[kernel.add] added definition both")
		assert.Contains(t, traceOut, "[compiler.compile] compiled both")
	})

	t.Run("disable wins inside run options", func(t *testing.T) {
		opts := options.Empty().
			Set(traceOpt("kernel"), true).
			Set(traceOpt("kernel.add"), false)
		_, _, _, traceOut, _ := runQuiet(t, RunConfig{Options: opts}, func(c *Context) (struct{}, Exception) {
			return struct{}{}, AddDecl(c, defn("quiet"))
		})
		assert.Empty(t, traceOut)
	})
}

func TestWithTraceNode(t *testing.T) {
	opts := options.Empty().Set(traceOpt("kernel"), true)
	_, exc, _, traceOut, _ := runQuiet(t, RunConfig{Options: opts}, func(c *Context) (int, Exception) {
		return WithTraceNode(c, TraceKernelAdd, msg.Text("batch"), func(c *Context) (int, Exception) {
			c.AddTrace(TraceKernelAdd, msg.Text("child"))
			return 7, nil
		})
	})
	require.Nil(t, exc)
	assert.Contains(t, traceOut, "[kernel.add] batch\n  [kernel.add] child")

	t.Run("disabled class skips the node entirely", func(t *testing.T) {
		v, exc, _, traceOut, _ := runQuiet(t, RunConfig{}, func(c *Context) (int, Exception) {
			return WithTraceNode(c, TraceKernelAdd, msg.Text("batch"), func(c *Context) (int, Exception) {
				return 9, nil
			})
		})
		require.Nil(t, exc)
		assert.Equal(t, 9, v)
		assert.Empty(t, traceOut)
	})
}

func TestGetTraceState(t *testing.T) {
	opts := options.Empty().Set(traceOpt("debug"), true)
	_, exc, _, _, _ := runQuiet(t, RunConfig{Options: opts}, func(c *Context) (struct{}, Exception) {
		c.AddTrace(name.New("debug"), msg.Text("one"))
		c.AddTrace(name.New("debug"), msg.Text("two"))
		roots := c.GetTraceState()
		require.Len(t, roots, 2)
		assert.True(t, roots[0].IsLeaf())
		return struct{}{}, nil
	})
	require.Nil(t, exc)
}

func TestRun_Basics(t *testing.T) {
	t.Run("value and final env", func(t *testing.T) {
		v, exc, env := Run(context.Background(), RunConfig{TraceOut: io.Discard, ErrOut: io.Discard},
			func(c *Context) (string, Exception) {
				if exc := AddDecl(c, defn("x")); exc != nil {
					return "", exc
				}
				return "done", nil
			})
		require.Nil(t, exc)
		assert.Equal(t, "done", v)
		assert.Equal(t, 1, env.Size())
	})

	t.Run("exception renders to err output", func(t *testing.T) {
		_, exc, _, _, errOut := runQuiet(t, RunConfig{}, func(c *Context) (struct{}, Exception) {
			return struct{}{}, &ElabError{Msg: msg.Text("custom failure")}
		})
		require.NotNil(t, exc)
		assert.Equal(t, "custom failure\n", errOut)
	})

	t.Run("maxRecDepth option sets the fence", func(t *testing.T) {
		opts := options.Empty().Set(OptMaxRecDepth, uint64(2))
		depth, exc, _, _, _ := runQuiet(t, RunConfig{Options: opts}, func(c *Context) (uint32, Exception) {
			return c.MaxRecDepth, nil
		})
		require.Nil(t, exc)
		assert.Equal(t, uint32(2), depth)
	})

	t.Run("explicit config overrides the option", func(t *testing.T) {
		opts := options.Empty().Set(OptMaxRecDepth, uint64(2))
		depth, _, _, _, _ := runQuiet(t, RunConfig{Options: opts, MaxRecDepth: 9}, func(c *Context) (uint32, Exception) {
			return c.MaxRecDepth, nil
		})
		assert.Equal(t, uint32(9), depth)
	})

	t.Run("default fence", func(t *testing.T) {
		depth, _, _, _, _ := runQuiet(t, RunConfig{}, func(c *Context) (uint32, Exception) {
			return c.MaxRecDepth, nil
		})
		assert.Equal(t, DefaultMaxRecDepth, depth)
	})

	t.Run("runs are independent", func(t *testing.T) {
		done := make(chan struct{})
		for i := 0; i < 4; i++ {
			go func() {
				defer func() { done <- struct{}{} }()
				_, exc, env := Run(context.Background(),
					RunConfig{TraceOut: io.Discard, ErrOut: io.Discard},
					func(c *Context) (struct{}, Exception) {
						return struct{}{}, AddDecl(c, defn("solo"))
					})
				assert.Nil(t, exc)
				assert.Equal(t, 1, env.Size(), "no cross-run sharing")
			}()
		}
		for i := 0; i < 4; i++ {
			<-done
		}
	})
}

func TestExceptionRendering(t *testing.T) {
	t.Run("io error renders verbatim", func(t *testing.T) {
		e := &IOError{Err: errors.New("read /tmp/x: permission denied")}
		assert.Equal(t, "read /tmp/x: permission denied", Render(e))
	})

	t.Run("kernel error defers to the kernel formatter", func(t *testing.T) {
		chk := kernel.NewRefChecker()
		env, _ := chk.AddDecl(kernel.NewEnvironment(), defn("dup"))
		_, kerr := chk.AddDecl(env, defn("dup"))
		require.NotNil(t, kerr)
		e := &KernelError{Env: env, Err: kerr}
		assert.Contains(t, Render(e), "dup has already been declared")
	})

	t.Run("elab error payload passes through", func(t *testing.T) {
		e := &ElabError{Msg: msg.Text("unexpected token")}
		assert.Equal(t, "unexpected token", Render(e))
	})

	t.Run("max recursion message", func(t *testing.T) {
		assert.Contains(t, Render(errMaxRecDepth), "maximum recursion depth")
		assert.True(t, IsMaxRecDepth(errMaxRecDepth))
		assert.False(t, IsMaxRecDepth(&ElabError{Msg: msg.Text(maxRecDepthText)}),
			"identity, not message text, distinguishes the fence exception")
	})
}

func TestStateRef_TakeTwicePanics(t *testing.T) {
	ref := NewStateRef(&State{})
	_ = ref.take()
	assert.Panics(t, func() { _ = ref.take() })
}
