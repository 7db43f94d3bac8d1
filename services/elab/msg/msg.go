// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package msg defines MessageData, the opaque pretty-printable diagnostic
// payload, and the formatting contract used to render it.
//
// Collaborators (the kernel, the elaborator) build MessageData values;
// nothing in the core inspects them beyond rendering. A front end with a
// richer formatter can substitute its own implementation behind the same
// Format/Pretty contract.
package msg

import (
	"strings"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// DefaultWidth is the rendering width used wherever a message is converted to
// display text without an explicit width.
const DefaultWidth = 120

// MessageData is an opaque, structured diagnostic payload.
type MessageData interface {
	// format lowers the payload to a layout tree under the given options.
	format(opts options.Options) Format

	sealedMessageData()
}

type textData struct{ s string }

type composeData struct{ a, b MessageData }

type nestData struct {
	indent int
	d      MessageData
}

func (textData) sealedMessageData()    {}
func (composeData) sealedMessageData() {}
func (nestData) sealedMessageData()    {}

// Text wraps a plain string.
func Text(s string) MessageData {
	return textData{s: s}
}

// OfName renders a hierarchical name.
func OfName(n name.Name) MessageData {
	return textData{s: n.String()}
}

// OfError wraps a native error's description.
func OfError(err error) MessageData {
	return textData{s: err.Error()}
}

// Compose concatenates payloads left to right.
func Compose(ds ...MessageData) MessageData {
	if len(ds) == 0 {
		return textData{}
	}
	d := ds[0]
	for _, next := range ds[1:] {
		d = composeData{a: d, b: next}
	}
	return d
}

// Nest indents every line break inside d by indent columns.
func Nest(indent int, d MessageData) MessageData {
	return nestData{indent: indent, d: d}
}

func (t textData) format(options.Options) Format {
	parts := strings.Split(t.s, "\n")
	f := FText(parts[0])
	for _, p := range parts[1:] {
		f = FConcat(f, FLine(), FText(p))
	}
	return f
}

func (c composeData) format(opts options.Options) Format {
	return FConcat(c.a.format(opts), c.b.format(opts))
}

func (n nestData) format(opts options.Options) Format {
	return FNest(n.indent, n.d.format(opts))
}

// FormatData lowers a payload to its layout tree.
func FormatData(d MessageData, opts options.Options) Format {
	return d.format(opts)
}

// ToString renders a payload at the default width. This is the single path
// from MessageData to display text; callers embedding one message inside
// another must go through it to keep formatting consistent.
func ToString(d MessageData) string {
	return Pretty(FormatData(d, options.Empty()), DefaultWidth)
}
