// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package msg

import "strings"

// Format is a layout tree: text runs, line breaks, concatenation and
// indentation. Pretty flattens it to a string at a target width.
type Format struct {
	kind     formatKind
	text     string
	indent   int
	children []Format
}

type formatKind int

const (
	fText formatKind = iota
	fLine
	fConcat
	fNest
)

// FText is a run of text with no line breaks.
func FText(s string) Format {
	return Format{kind: fText, text: s}
}

// FLine is a hard line break honoring the enclosing indentation.
func FLine() Format {
	return Format{kind: fLine}
}

// FConcat concatenates layouts left to right.
func FConcat(fs ...Format) Format {
	return Format{kind: fConcat, children: fs}
}

// FNest increases the indentation of every line break inside f.
func FNest(indent int, f Format) Format {
	return Format{kind: fNest, indent: indent, children: []Format{f}}
}

// Pretty renders the layout at the given width.
//
// Text runs that would overflow the width are wrapped at word boundaries;
// wrapped continuations keep the current indentation. A width <= 0 disables
// wrapping.
func Pretty(f Format, width int) string {
	var sb strings.Builder
	col := 0
	pretty(&sb, f, 0, width, &col)
	return sb.String()
}

func pretty(sb *strings.Builder, f Format, indent, width int, col *int) {
	switch f.kind {
	case fText:
		emitWrapped(sb, f.text, indent, width, col)
	case fLine:
		newline(sb, indent, col)
	case fConcat:
		for _, c := range f.children {
			pretty(sb, c, indent, width, col)
		}
	case fNest:
		pretty(sb, f.children[0], indent+f.indent, width, col)
	}
}

func newline(sb *strings.Builder, indent int, col *int) {
	sb.WriteByte('\n')
	for i := 0; i < indent; i++ {
		sb.WriteByte(' ')
	}
	*col = indent
}

func emitWrapped(sb *strings.Builder, text string, indent, width int, col *int) {
	words := strings.Fields(text)
	if len(words) == 0 {
		sb.WriteString(text)
		*col += len(text)
		return
	}
	// Preserve leading/trailing spacing of the run; interior runs of spaces
	// collapse when the run wraps.
	leading := strings.HasPrefix(text, " ")
	trailing := strings.HasSuffix(text, " ")
	for i, w := range words {
		sep := 0
		if i > 0 || leading {
			sep = 1
		}
		if width > 0 && *col > indent && *col+sep+len(w) > width {
			newline(sb, indent, col)
		} else if sep == 1 {
			sb.WriteByte(' ')
			*col++
		}
		sb.WriteString(w)
		*col += len(w)
	}
	if trailing {
		sb.WriteByte(' ')
		*col++
	}
}
