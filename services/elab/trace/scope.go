// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trace

import (
	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// TypeContext is the opaque type-context bound alongside the environment and
// options for the duration of a trace scope. The tracing layer never inspects
// it; it is carried for collaborators that format diagnostics.
type TypeContext any

// Scope holds the trace enablement state of one logical run: the ordered
// enabled/disabled class lists and the currently bound
// environment/options/type-context triple.
//
// A Scope belongs to exactly one run and must not be shared between
// concurrent runs. Entering a nested scope appends to the lists; exiting
// truncates them back, stack-fashion, so nested scopes compose by further
// restriction or relaxation.
type Scope struct {
	enabled  []name.Name
	disabled []name.Name

	env  *kernel.Environment
	opts options.Options
	tctx TypeContext
}

// NewScope returns an empty scope: tracing off, nothing bound.
func NewScope() *Scope {
	return &Scope{}
}

// Enter binds the triple for a nested dynamic extent and interprets every
// option key under the reserved "trace" namespace: a true value enables the
// named subclass, false disables it. Additions append to the current lists
// rather than replacing them.
//
// The returned restore function must run on every exit path (defer it):
// it unconditionally rebinds the prior triple and truncates both lists to
// their length at entry, whether the scope body returned normally or
// propagated a failure.
func (s *Scope) Enter(env *kernel.Environment, opts options.Options, tctx TypeContext) (restore func()) {
	enabledLen := len(s.enabled)
	disabledLen := len(s.disabled)
	prevEnv, prevOpts, prevTctx := s.env, s.opts, s.tctx

	s.env = env
	s.tctx = tctx
	opts.ForEach(func(key name.Name, val any) {
		if !OptionRoot.IsPrefixOf(key) {
			return
		}
		class := key.ReplacePrefix(OptionRoot, name.Anonymous())
		if class.IsAnonymous() {
			return
		}
		if opts.GetBool(key, false) {
			s.enabled = appendClass(s.enabled, class)
		} else {
			s.disabled = appendClass(s.disabled, class)
		}
	})
	s.opts = opts

	return func() {
		s.env, s.opts, s.tctx = prevEnv, prevOpts, prevTctx
		s.enabled = s.enabled[:enabledLen]
		s.disabled = s.disabled[:disabledLen]
	}
}

// appendClass adds c to cs unless already present.
func appendClass(cs []name.Name, c name.Name) []name.Name {
	for _, existing := range cs {
		if existing.Equal(c) {
			return cs
		}
	}
	return append(cs, c)
}

// Bound returns the currently bound environment/options/type-context triple.
func (s *Scope) Bound() (*kernel.Environment, options.Options, TypeContext) {
	return s.env, s.opts, s.tctx
}

// IsEnabled reports whether tracing is on at all (enabled list non-empty).
func (s *Scope) IsEnabled() bool {
	return len(s.enabled) > 0
}

// IsClassEnabled implements the enablement precedence: tracing must be on,
// the class must not match the disabled list, and it must match the enabled
// list. Matching is by prefix and extends transitively through registered
// aliases of the class and of each of its prefixes.
func (s *Scope) IsClassEnabled(class name.Name) bool {
	if !s.IsEnabled() {
		return false
	}
	if matchesList(s.disabled, class) {
		return false // explicitly disabled
	}
	return matchesList(s.enabled, class)
}

// matchesList reports whether any list entry is a prefix of class, directly
// or through an alias registered for class or one of its prefixes.
func matchesList(cs []name.Name, class name.Name) bool {
	if matchesDirect(cs, class) {
		return true
	}
	for it := class; ; it = it.Prefix() {
		for _, alias := range aliasesOf(it) {
			if matchesDirect(cs, alias) {
				return true
			}
		}
		if it.IsAtomic() {
			return false
		}
	}
}

func matchesDirect(cs []name.Name, class name.Name) bool {
	for _, p := range cs {
		if p.IsPrefixOf(class) {
			return true
		}
	}
	return false
}
