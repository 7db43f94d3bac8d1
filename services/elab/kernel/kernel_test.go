// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianElab/services/elab/msg"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

func decl(n string, uses ...string) Declaration {
	d := Declaration{Name: MustName(n), Kind: KindDefinition}
	for _, u := range uses {
		d.Uses = append(d.Uses, MustName(u))
	}
	return d
}

func TestRefChecker_AddDecl(t *testing.T) {
	c := NewRefChecker()

	t.Run("admits fresh declaration", func(t *testing.T) {
		env, kerr := c.AddDecl(NewEnvironment(), decl("Nat"))
		require.Nil(t, kerr)
		assert.True(t, env.Contains(MustName("Nat")))
		assert.Equal(t, 1, env.Size())
	})

	t.Run("rejects anonymous name", func(t *testing.T) {
		_, kerr := c.AddDecl(NewEnvironment(), Declaration{})
		require.NotNil(t, kerr)
		assert.Equal(t, ReasonAnonymous, kerr.Reason)
	})

	t.Run("rejects duplicate", func(t *testing.T) {
		env, kerr := c.AddDecl(NewEnvironment(), decl("Nat"))
		require.Nil(t, kerr)
		_, kerr = c.AddDecl(env, decl("Nat"))
		require.NotNil(t, kerr)
		assert.Equal(t, ReasonDuplicate, kerr.Reason)
	})

	t.Run("rejects unknown reference", func(t *testing.T) {
		_, kerr := c.AddDecl(NewEnvironment(), decl("Nat.add", "Nat"))
		require.NotNil(t, kerr)
		assert.Equal(t, ReasonUnknownReference, kerr.Reason)
		assert.True(t, kerr.Missing.Equal(MustName("Nat")))
	})

	t.Run("admits with satisfied references", func(t *testing.T) {
		env, kerr := c.AddDecl(NewEnvironment(), decl("Nat"))
		require.Nil(t, kerr)
		env, kerr = c.AddDecl(env, decl("Nat.add", "Nat"))
		require.Nil(t, kerr)
		assert.True(t, env.Contains(MustName("Nat.add")))
	})

	t.Run("failure leaves input environment untouched", func(t *testing.T) {
		env, kerr := c.AddDecl(NewEnvironment(), decl("Nat"))
		require.Nil(t, kerr)
		before := env.Size()
		_, kerr = c.AddDecl(env, decl("Nat"))
		require.NotNil(t, kerr)
		assert.Equal(t, before, env.Size())
	})
}

func TestEnvironment_FindAndShadowing(t *testing.T) {
	c := NewRefChecker()
	env, _ := c.AddDecl(NewEnvironment(), decl("foo"))

	info, ok := env.Find(MustName("foo"))
	require.True(t, ok)
	assert.False(t, info.Compiled)

	// Compiling shadows the record with a compiled one.
	comp := NewRefCompiler()
	env2, err := comp.CompileDecl(env, options.Empty(), decl("foo"))
	require.NoError(t, err)

	info2, ok := env2.Find(MustName("foo"))
	require.True(t, ok)
	assert.True(t, info2.Compiled, "newest record wins")

	// The pre-compile environment still sees the uncompiled record.
	info, _ = env.Find(MustName("foo"))
	assert.False(t, info.Compiled, "environments are persistent")
}

func TestEnvironment_NilIsEmpty(t *testing.T) {
	var env *Environment
	assert.Equal(t, 0, env.Size())
	assert.False(t, env.Contains(MustName("x")))
	_, ok := env.Find(MustName("x"))
	assert.False(t, ok)
	env.ForEach(func(Info) { t.Fatal("empty environment has no entries") })
}

func TestEnvironment_ForEachDeduplicates(t *testing.T) {
	c := NewRefChecker()
	comp := NewRefCompiler()
	env, _ := c.AddDecl(NewEnvironment(), decl("a"))
	env, _ = c.AddDecl(env, decl("b"))
	env, err := comp.CompileDecl(env, options.Empty(), decl("a"))
	require.NoError(t, err)

	var names []string
	var compiled []bool
	env.ForEach(func(i Info) {
		names = append(names, i.Declaration.Name.String())
		compiled = append(compiled, i.Compiled)
	})
	assert.Equal(t, []string{"b", "a"}, names, "newest record per name; re-recording moves a name to its new position")
	assert.Equal(t, []bool{false, true}, compiled)
}

func TestRefCompiler(t *testing.T) {
	c := NewRefChecker()

	t.Run("noncomputable fails", func(t *testing.T) {
		d := decl("opaque")
		d.Noncomputable = true
		env, _ := c.AddDecl(NewEnvironment(), d)
		_, err := NewRefCompiler().CompileDecl(env, options.Empty(), d)
		require.Error(t, err)
	})

	t.Run("axioms are skipped", func(t *testing.T) {
		d := Declaration{Name: MustName("choice"), Kind: KindAxiom}
		env, _ := c.AddDecl(NewEnvironment(), d)
		env2, err := NewRefCompiler().CompileDecl(env, options.Empty(), d)
		require.NoError(t, err)
		assert.Equal(t, env, env2)
	})

	t.Run("FailOn seam", func(t *testing.T) {
		d := decl("fragile")
		env, _ := c.AddDecl(NewEnvironment(), d)
		comp := &RefCompiler{FailOn: func(dd Declaration) error {
			if dd.Name.Equal(d.Name) {
				return errors.New("backend exploded")
			}
			return nil
		}}
		_, err := comp.CompileDecl(env, options.Empty(), d)
		require.EqualError(t, err, "backend exploded")
	})

	t.Run("declaration must be present", func(t *testing.T) {
		_, err := NewRefCompiler().CompileDecl(NewEnvironment(), options.Empty(), decl("ghost"))
		require.Error(t, err)
	})
}

func TestError_Explain(t *testing.T) {
	c := NewRefChecker()
	env, _ := c.AddDecl(NewEnvironment(), decl("Nat"))

	_, kerr := c.AddDecl(env, decl("Nat"))
	require.NotNil(t, kerr)
	out := msg.ToString(kerr.Explain(env))
	assert.Contains(t, out, "Nat")
	assert.Contains(t, out, "already been declared")
	assert.Contains(t, out, "definition")

	_, kerr = c.AddDecl(env, decl("f", "g"))
	require.NotNil(t, kerr)
	out = msg.ToString(kerr.Explain(env))
	assert.Contains(t, out, "unknown declaration g")
}
