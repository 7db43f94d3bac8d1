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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianElab/services/elab/name"
	"github.com/AleutianAI/AleutianElab/services/elab/options"
	"github.com/AleutianAI/AleutianElab/services/elab/trace"
)

// runClasses lists registered trace classes with their option keys.
func runClasses(cmd *cobra.Command, args []string) {
	for _, class := range trace.Classes() {
		key := class.ReplacePrefix(name.Anonymous(), trace.OptionRoot)
		line := fmt.Sprintf("%-30s option %s", class, key)
		if decl, ok := options.Lookup(key); ok {
			line += fmt.Sprintf("  (default %v)", decl.Default)
		}
		fmt.Println(line)
	}
}
