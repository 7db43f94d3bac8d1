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

	"github.com/AleutianAI/AleutianElab/services/elab/msg"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
)

// RejectReason classifies why the checker rejected a declaration.
type RejectReason int

const (
	// ReasonAnonymous rejects a declaration with an empty name.
	ReasonAnonymous RejectReason = iota

	// ReasonDuplicate rejects a name already present in the environment.
	ReasonDuplicate

	// ReasonUnknownReference rejects a declaration using an undeclared name.
	ReasonUnknownReference
)

// Error is the checker's rejection of a declaration. It carries enough
// structure for the kernel to explain the failure against the environment it
// was checked in.
type Error struct {
	Decl    Declaration
	Reason  RejectReason
	Missing name.Name // set for ReasonUnknownReference
}

// Error implements the error interface with a short, unformatted summary.
func (e *Error) Error() string {
	switch e.Reason {
	case ReasonAnonymous:
		return "kernel: declaration has no name"
	case ReasonDuplicate:
		return fmt.Sprintf("kernel: %s has already been declared", e.Decl.Name)
	case ReasonUnknownReference:
		return fmt.Sprintf("kernel: %s references unknown declaration %s", e.Decl.Name, e.Missing)
	default:
		return "kernel: declaration rejected"
	}
}

// Explain renders the rejection against env. This is the kernel's own
// formatter in the sense of the exception-rendering contract: the core defers
// to it rather than interpreting the error itself.
func (e *Error) Explain(env *Environment) msg.MessageData {
	switch e.Reason {
	case ReasonAnonymous:
		return msg.Text("invalid declaration, name is anonymous")
	case ReasonDuplicate:
		prev, _ := env.Find(e.Decl.Name)
		return msg.Compose(
			msg.Text("invalid declaration, "),
			msg.OfName(e.Decl.Name),
			msg.Text(" has already been declared as a "),
			msg.Text(prev.Declaration.Kind.String()),
		)
	case ReasonUnknownReference:
		return msg.Compose(
			msg.Text("invalid "),
			msg.Text(e.Decl.Kind.String()),
			msg.Text(" "),
			msg.OfName(e.Decl.Name),
			msg.Text(", unknown declaration "),
			msg.OfName(e.Missing),
		)
	default:
		return msg.Text("declaration rejected")
	}
}
