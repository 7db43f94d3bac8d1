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
	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/msg"
)

// Exception is the closed failure taxonomy of the execution core.
//
// Exceptions are plain values: every fallible operation returns one (or nil)
// alongside its result, and callers recover, translate or re-raise by
// ordinary control flow. Nothing in this package panics across an API
// boundary. The three variants are IOError, KernelError and ElabError;
// the set is sealed.
type Exception interface {
	// ToMessageData converts the exception to a renderable payload.
	ToMessageData() msg.MessageData

	sealedException()
}

// IOError wraps a native I/O failure, surfaced verbatim.
type IOError struct {
	Err error
}

// KernelError wraps a checker rejection together with the environment the
// declaration was checked against, so the kernel's own formatter can explain
// it.
type KernelError struct {
	Env *kernel.Environment
	Err *kernel.Error
}

// ElabError is an elaboration-level failure carrying a pre-rendered payload.
type ElabError struct {
	Msg msg.MessageData
}

func (*IOError) sealedException()     {}
func (*KernelError) sealedException() {}
func (*ElabError) sealedException()   {}

// ToMessageData renders the native error description as plain text.
func (e *IOError) ToMessageData() msg.MessageData {
	return msg.OfError(e.Err)
}

// ToMessageData defers to the kernel's explanation of the failed check.
func (e *KernelError) ToMessageData() msg.MessageData {
	return e.Err.Explain(e.Env)
}

// ToMessageData returns the payload unchanged.
func (e *ElabError) ToMessageData() msg.MessageData {
	return e.Msg
}

// Render converts an exception to display text at the default width. This is
// the sole formatting path for exceptions; callers embedding exception text
// elsewhere must reuse it so rendering stays consistent.
func Render(e Exception) string {
	return msg.ToString(e.ToMessageData())
}

// maxRecDepthText is the fixed message of the recursion-fence failure.
const maxRecDepthText = "maximum recursion depth has been reached (use option maxRecDepth to increase limit)"

// errMaxRecDepth is the distinguished recursion-fence exception. A single
// value, so recovery logic can recognize it cheaply.
var errMaxRecDepth = &ElabError{Msg: msg.Text(maxRecDepthText)}

// IsMaxRecDepth reports whether e is the recursion-fence exception.
func IsMaxRecDepth(e Exception) bool {
	return e == Exception(errMaxRecDepth)
}
