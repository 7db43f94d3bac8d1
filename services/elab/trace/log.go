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
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/AleutianElab/services/elab/msg"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
)

// Node is one entry in the trace log: either a leaf carrying a formatted
// diagnostic, or an internal node holding the entries produced inside a
// nested trace scope.
type Node struct {
	// Class is the trace class the entry was recorded under. Internal nodes
	// carry the class of the scope that opened them.
	Class name.Name

	// Message is the diagnostic payload. Nil for internal nodes without a
	// heading.
	Message msg.MessageData

	// Children are the entries recorded inside this node, in order.
	// Nil for leaves.
	Children []*Node

	leaf bool
}

// IsLeaf reports whether the node is a single diagnostic message.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Log is the ordered forest of trace entries collected during one run.
//
// Append-only while the run executes; drained (or discarded) when the run
// ends. Owned by a single run's state cell, so it needs no locking.
type Log struct {
	roots []*Node
	open  []*Node // stack of open internal nodes
}

// Add appends a leaf under the innermost open node (or at the top level).
func (l *Log) Add(class name.Name, m msg.MessageData) {
	l.attach(&Node{Class: class, Message: m, leaf: true})
}

// OpenNode starts a nested scope recorded as an internal node. Every entry
// added before the matching CloseNode becomes a child of the node.
func (l *Log) OpenNode(class name.Name, heading msg.MessageData) {
	n := &Node{Class: class, Message: heading, Children: []*Node{}}
	l.attach(n)
	l.open = append(l.open, n)
}

// CloseNode ends the innermost nested scope. Closing with no open node is a
// no-op.
func (l *Log) CloseNode() {
	if len(l.open) > 0 {
		l.open = l.open[:len(l.open)-1]
	}
}

func (l *Log) attach(n *Node) {
	if len(l.open) > 0 {
		parent := l.open[len(l.open)-1]
		parent.Children = append(parent.Children, n)
		return
	}
	l.roots = append(l.roots, n)
}

// Len returns the number of top-level entries.
func (l *Log) Len() int {
	return len(l.roots)
}

// Roots returns the top-level entries in recording order.
func (l *Log) Roots() []*Node {
	return l.roots
}

// Drain returns the recorded forest and resets the log.
func (l *Log) Drain() []*Node {
	roots := l.roots
	l.roots = nil
	l.open = nil
	return roots
}

// Flush writes the forest to w depth-first, left to right: leaves print as
// "[class] message", internal nodes print their heading and indent their
// children. The log is reset afterward.
func (l *Log) Flush(w io.Writer) error {
	roots := l.Drain()
	for _, n := range roots {
		if err := flushNode(w, n, 0); err != nil {
			return err
		}
	}
	return nil
}

func flushNode(w io.Writer, n *Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	if n.leaf {
		text := msg.ToString(n.Message)
		_, err := fmt.Fprintf(w, "%s[%s] %s\n", indent, n.Class, indentBody(text, indent))
		return err
	}
	if n.Message != nil {
		if _, err := fmt.Fprintf(w, "%s[%s] %s\n", indent, n.Class, indentBody(msg.ToString(n.Message), indent)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := flushNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// indentBody keeps multi-line messages aligned under their heading.
func indentBody(text, indent string) string {
	return strings.ReplaceAll(text, "\n", "\n"+indent+"  ")
}
