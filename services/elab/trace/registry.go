// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trace implements the diagnostic tracing subsystem: the
// process-wide catalog of trace classes, per-run scoped enablement, and the
// hierarchical trace log collected during a run.
//
// Trace classes are hierarchical names ("elab", "elab.step", "kernel.add").
// Enabling a class enables its whole subtree; disabling takes precedence.
// Registration is expected during process initialization, before any run is
// tracing — concurrent registration with active lookups is not a supported
// pattern (single writer, many readers).
package trace

import (
	"sort"
	"sync"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
)

// OptionRoot is the reserved option namespace for trace classes: class C is
// controlled by the boolean option "trace.C".
var OptionRoot = name.New("trace")

// registry is the process-wide trace class catalog. Append-only.
var registry = struct {
	mu      sync.RWMutex
	classes map[string]name.Name
	aliases map[string][]name.Name
}{
	classes: make(map[string]name.Name),
	aliases: make(map[string][]name.Name),
}

// RegisterClass registers a trace class and its controlling boolean option
// ("trace." + class, default false). Idempotent.
func RegisterClass(class name.Name) {
	options.Register(options.Decl{
		Name:        class.ReplacePrefix(name.Anonymous(), OptionRoot),
		Kind:        options.KindBool,
		Default:     false,
		Description: "(trace) enable/disable tracing for the given module and submodules",
	})

	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.classes[class.String()] = class
}

// RegisterAlias adds alias to class's alias set. A class matched through one
// of its aliases behaves as if the alias itself were in the enablement lists.
func RegisterAlias(class, alias name.Name) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	k := class.String()
	for _, a := range registry.aliases[k] {
		if a.Equal(alias) {
			return
		}
	}
	registry.aliases[k] = append(registry.aliases[k], alias)
}

// IsRegistered reports whether class has been registered.
func IsRegistered(class name.Name) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	_, ok := registry.classes[class.String()]
	return ok
}

// Classes returns the registered classes in rendered order.
func Classes() []name.Name {
	registry.mu.RLock()
	keys := make([]string, 0, len(registry.classes))
	for k := range registry.classes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]name.Name, 0, len(keys))
	for _, k := range keys {
		out = append(out, registry.classes[k])
	}
	registry.mu.RUnlock()
	return out
}

// aliasesOf returns the alias set of class (shared slice; callers must not
// mutate).
func aliasesOf(class name.Name) []name.Name {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.aliases[class.String()]
}

func init() {
	RegisterClass(name.New("debug"))
}
