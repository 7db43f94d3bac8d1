// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kernel defines the collaborator contracts of the trusted checker
// and the native-code compiler, together with the in-memory environment they
// act on.
//
// The execution core reaches both collaborators only through the Checker and
// Compiler interfaces. The reference implementations in this package check
// name-level well-formedness only — they are stand-ins giving the pipeline,
// the CLI and the tests something real to drive, not a type checker.
package kernel

import (
	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// DeclKind classifies a declaration.
type DeclKind int

const (
	// KindDefinition is a named definition with a value.
	KindDefinition DeclKind = iota

	// KindTheorem is a proved statement; its value is a proof.
	KindTheorem

	// KindAxiom is a postulated statement with no value.
	KindAxiom
)

// String returns the string representation of the declaration kind.
func (k DeclKind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindTheorem:
		return "theorem"
	case KindAxiom:
		return "axiom"
	default:
		return "unknown"
	}
}

// Declaration is a named unit the checker can admit into an environment.
type Declaration struct {
	// Name identifies the declaration. Must not be anonymous.
	Name name.Name

	// Kind classifies the declaration.
	Kind DeclKind

	// Type and Value are opaque to this layer; the reference checker only
	// validates the names listed in Uses.
	Type  string
	Value string

	// Uses lists the declarations this one references. The reference checker
	// requires every entry to be present in the environment.
	Uses []name.Name

	// Noncomputable marks a definition that deliberately has no executable
	// code. The reference compiler rejects it.
	Noncomputable bool
}

// Info is what an environment records per admitted declaration.
type Info struct {
	Declaration Declaration

	// Compiled reports whether the native compiler has produced code for the
	// declaration. A declaration can be present but uncompiled — the
	// pipeline deliberately keeps checker-admitted declarations whose
	// compilation failed.
	Compiled bool
}

// Checker is the trusted type-checking collaborator.
type Checker interface {
	// AddDecl validates decl against env. On success it returns a new
	// environment containing decl; env itself is never mutated. On failure
	// it returns a *Error describing the rejection.
	AddDecl(env *Environment, decl Declaration) (*Environment, *Error)
}

// Compiler is the native-code backend collaborator.
type Compiler interface {
	// CompileDecl produces executable code for decl, returning a possibly
	// further-updated environment. env already contains decl (AddDecl
	// committed first).
	CompileDecl(env *Environment, opts options.Options, decl Declaration) (*Environment, error)
}
