// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianElab/services/elab/kernel"
	"github.com/AleutianAI/AleutianElab/services/elab/name"
)

// Batch is one declaration batch file: per-file option bindings plus the
// declarations to check and compile, in order.
type Batch struct {
	Options      map[string]any `yaml:"options"`
	Declarations []BatchDecl    `yaml:"declarations"`
}

// BatchDecl is the YAML form of a declaration.
type BatchDecl struct {
	Name          string   `yaml:"name"`
	Kind          string   `yaml:"kind"`
	Type          string   `yaml:"type"`
	Value         string   `yaml:"value"`
	Uses          []string `yaml:"uses"`
	Noncomputable bool     `yaml:"noncomputable"`
}

// loadBatch reads and validates a batch file.
func loadBatch(path string) (Batch, error) {
	var b Batch
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, d := range b.Declarations {
		if d.Name == "" {
			return b, fmt.Errorf("%s: declaration %d has no name", path, i)
		}
		if _, err := parseKind(d.Kind); err != nil {
			return b, fmt.Errorf("%s: declaration %q: %w", path, d.Name, err)
		}
	}
	return b, nil
}

func parseKind(s string) (kernel.DeclKind, error) {
	switch s {
	case "", "definition":
		return kernel.KindDefinition, nil
	case "theorem":
		return kernel.KindTheorem, nil
	case "axiom":
		return kernel.KindAxiom, nil
	default:
		return 0, fmt.Errorf("unknown declaration kind %q", s)
	}
}

// toDeclaration converts the YAML form to the kernel's.
func (d BatchDecl) toDeclaration() kernel.Declaration {
	kind, _ := parseKind(d.Kind)
	uses := make([]name.Name, 0, len(d.Uses))
	for _, u := range d.Uses {
		uses = append(uses, name.FromString(u))
	}
	return kernel.Declaration{
		Name:          name.FromString(d.Name),
		Kind:          kind,
		Type:          d.Type,
		Value:         d.Value,
		Uses:          uses,
		Noncomputable: d.Noncomputable,
	}
}
