// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package options provides dot-keyed option sets and the process-wide
// registry of declared options.
//
// Option keys are hierarchical names rendered dot-joined ("trace.elab.step").
// An Options value is treated as immutable: Set returns a copy, so scopes can
// hold a snapshot without defensive copying.
package options

import (
	"sort"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
)

// Options is an immutable-by-convention set of configuration values keyed by
// hierarchical names.
type Options struct {
	m map[string]entry
}

type entry struct {
	key name.Name
	val any
}

// Empty returns an option set with no entries.
func Empty() Options {
	return Options{}
}

// Len returns the number of entries.
func (o Options) Len() int {
	return len(o.m)
}

// Set returns a copy of o with key bound to val.
func (o Options) Set(key name.Name, val any) Options {
	m := make(map[string]entry, len(o.m)+1)
	for k, e := range o.m {
		m[k] = e
	}
	m[key.String()] = entry{key: key, val: val}
	return Options{m: m}
}

// Get returns the raw value bound to key.
func (o Options) Get(key name.Name) (any, bool) {
	e, ok := o.m[key.String()]
	if !ok {
		return nil, false
	}
	return e.val, true
}

// GetBool returns the boolean bound to key, or def if the key is unbound or
// bound to a non-boolean.
func (o Options) GetBool(key name.Name, def bool) bool {
	if v, ok := o.m[key.String()]; ok {
		if b, ok := v.val.(bool); ok {
			return b
		}
	}
	return def
}

// GetUint returns the unsigned integer bound to key, or def.
func (o Options) GetUint(key name.Name, def uint64) uint64 {
	if v, ok := o.m[key.String()]; ok {
		switch n := v.val.(type) {
		case uint64:
			return n
		case int:
			if n >= 0 {
				return uint64(n)
			}
		}
	}
	return def
}

// GetString returns the string bound to key, or def.
func (o Options) GetString(key name.Name, def string) string {
	if v, ok := o.m[key.String()]; ok {
		if s, ok := v.val.(string); ok {
			return s
		}
	}
	return def
}

// ForEach visits every bound key in rendered-key order.
func (o Options) ForEach(fn func(key name.Name, val any)) {
	keys := make([]string, 0, len(o.m))
	for k := range o.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := o.m[k]
		fn(e.key, e.val)
	}
}
