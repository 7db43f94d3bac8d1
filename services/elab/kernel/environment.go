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

import "github.com/AleutianAI/AleutianElab/services/elab/name"

// Environment is the accumulated set of admitted declarations.
//
// It is a persistent chain: extending an environment allocates one link and
// shares the rest, so the core can hold the pre-commit environment while a
// collaborator builds the post-commit one. A nil *Environment is the valid
// empty environment. Environments are immutable and safe to share.
type Environment struct {
	parent *Environment
	info   Info
	size   int
}

// NewEnvironment returns the empty environment.
func NewEnvironment() *Environment {
	return nil
}

// extend returns env with info appended. The newest link shadows older links
// with the same name, which is how compilation marks are recorded without
// mutation.
func (e *Environment) extend(info Info) *Environment {
	return &Environment{parent: e, info: info, size: e.Size() + 1}
}

// Size returns the number of links in the chain (shadowed links included).
func (e *Environment) Size() int {
	if e == nil {
		return 0
	}
	return e.size
}

// Find returns the newest record for n.
func (e *Environment) Find(n name.Name) (Info, bool) {
	for it := e; it != nil; it = it.parent {
		if it.info.Declaration.Name.Equal(n) {
			return it.info, true
		}
	}
	return Info{}, false
}

// Contains reports whether n has been admitted.
func (e *Environment) Contains(n name.Name) bool {
	_, ok := e.Find(n)
	return ok
}

// ForEach visits the newest record of every declared name in chain order,
// oldest link first. A re-recorded name is visited at the position of its
// newest record.
func (e *Environment) ForEach(fn func(Info)) {
	var links []*Environment
	seen := make(map[string]bool)
	for it := e; it != nil; it = it.parent {
		k := it.info.Declaration.Name.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		links = append(links, it)
	}
	for i := len(links) - 1; i >= 0; i-- {
		fn(links[i].info)
	}
}
