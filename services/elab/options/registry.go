// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package options

import (
	"sort"
	"sync"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
)

// DeclKind is the value kind of a declared option.
type DeclKind int

const (
	// KindBool declares a boolean option.
	KindBool DeclKind = iota

	// KindNat declares an unsigned integer option.
	KindNat

	// KindString declares a string option.
	KindString
)

// Decl describes a registered option: its key, value kind, default and a
// fixed human-readable description.
type Decl struct {
	Name        name.Name
	Kind        DeclKind
	Default     any
	Description string
}

// registry is the process-wide option declaration catalog. Registration is
// expected to happen during an initialization phase; lookups afterward are
// read-mostly.
var registry = struct {
	mu    sync.RWMutex
	decls map[string]Decl
}{decls: make(map[string]Decl)}

// Register declares an option. Registering the same key twice is idempotent;
// the first declaration wins.
func Register(d Decl) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	k := d.Name.String()
	if _, ok := registry.decls[k]; ok {
		return
	}
	registry.decls[k] = d
}

// Lookup returns the declaration registered for key.
func Lookup(key name.Name) (Decl, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	d, ok := registry.decls[key.String()]
	return d, ok
}

// ForEachDecl visits every registered declaration in rendered-key order.
func ForEachDecl(fn func(Decl)) {
	registry.mu.RLock()
	keys := make([]string, 0, len(registry.decls))
	for k := range registry.decls {
		keys = append(keys, k)
	}
	decls := make([]Decl, 0, len(keys))
	sort.Strings(keys)
	for _, k := range keys {
		decls = append(decls, registry.decls[k])
	}
	registry.mu.RUnlock()

	for _, d := range decls {
		fn(d)
	}
}
