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
	"fmt"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// RefChecker is the reference Checker: it admits declarations whose name is
// fresh and whose references are all present. Purely functional — a failed
// check returns the input environment untouched.
type RefChecker struct{}

// NewRefChecker returns the reference checker.
func NewRefChecker() *RefChecker {
	return &RefChecker{}
}

// AddDecl implements Checker.
func (c *RefChecker) AddDecl(env *Environment, decl Declaration) (*Environment, *Error) {
	if decl.Name.IsAnonymous() {
		return nil, &Error{Decl: decl, Reason: ReasonAnonymous}
	}
	if env.Contains(decl.Name) {
		return nil, &Error{Decl: decl, Reason: ReasonDuplicate}
	}
	for _, used := range decl.Uses {
		if !env.Contains(used) {
			return nil, &Error{Decl: decl, Reason: ReasonUnknownReference, Missing: used}
		}
	}
	return env.extend(Info{Declaration: decl}), nil
}

// RefCompiler is the reference Compiler: it marks declarations compiled by
// shadowing their environment record. Axioms have no code and are skipped.
//
// FailOn is a test/driver seam: when non-nil it is consulted before
// compilation and a non-nil error aborts the declaration.
type RefCompiler struct {
	FailOn func(decl Declaration) error
}

// NewRefCompiler returns the reference compiler.
func NewRefCompiler() *RefCompiler {
	return &RefCompiler{}
}

// CompileDecl implements Compiler.
func (c *RefCompiler) CompileDecl(env *Environment, _ options.Options, decl Declaration) (*Environment, error) {
	if c.FailOn != nil {
		if err := c.FailOn(decl); err != nil {
			return nil, err
		}
	}
	if decl.Noncomputable {
		return nil, fmt.Errorf("compiler: %s is marked noncomputable", decl.Name)
	}
	if decl.Kind == KindAxiom {
		return env, nil
	}
	info, ok := env.Find(decl.Name)
	if !ok {
		return nil, fmt.Errorf("compiler: %s is not in the environment", decl.Name)
	}
	info.Compiled = true
	return env.extend(info), nil
}

// MustName is a test/driver convenience: it parses a dotted name and panics
// on the anonymous result.
func MustName(s string) name.Name {
	n := name.FromString(s)
	if n.IsAnonymous() {
		panic(fmt.Sprintf("kernel: %q parses to the anonymous name", s))
	}
	return n
}
