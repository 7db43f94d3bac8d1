// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package name implements hierarchical identifiers with structural sharing.
//
// A Name is an immutable chain of string and numeral components hanging off
// the anonymous root. Every value caches its hash at construction, so
// equality checks reject mismatches in O(1) and only walk the chain when the
// hashes collide. Names identify declarations, trace classes and option keys
// throughout the elaboration core.
//
// Construction only ever appends a component to an existing prefix, so the
// chain is acyclic by construction and safe to share between values.
package name

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync/atomic"
)

// Separator joins components in the rendered form of a name.
const Separator = "."

// anonymousHash is the cached hash of the anonymous name.
const anonymousHash uint64 = 11

// Kind discriminates the three name constructors.
type Kind int

const (
	// KindAnonymous is the empty name, the root of every chain.
	KindAnonymous Kind = iota

	// KindStr is a name extending a prefix with a string component.
	KindStr

	// KindNum is a name extending a prefix with a numeral component.
	KindNum
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindStr:
		return "str"
	case KindNum:
		return "num"
	default:
		return "unknown"
	}
}

// Name is an immutable hierarchical identifier.
//
// The zero value is the anonymous (empty) name. Values share their prefix
// chains; copying a Name copies one pointer. Use Equal, Cmp or QuickCmp to
// compare names — the == operator compares chain identity, not structure.
type Name struct {
	n *node
}

// node is the heap representation of a non-anonymous name.
type node struct {
	prefix Name
	kind   Kind
	str    string
	num    uint64
	hash   uint64
}

// Anonymous returns the empty name.
func Anonymous() Name {
	return Name{}
}

// mixHash combines a prefix hash with a component hash.
func mixHash(h, k uint64) uint64 {
	h ^= k + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	return h
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Str returns prefix extended with a string component.
func Str(prefix Name, s string) Name {
	return Name{n: &node{
		prefix: prefix,
		kind:   KindStr,
		str:    s,
		hash:   mixHash(prefix.Hash(), hashString(s)),
	}}
}

// Num returns prefix extended with a numeral component.
func Num(prefix Name, v uint64) Name {
	return Name{n: &node{
		prefix: prefix,
		kind:   KindNum,
		num:    v,
		hash:   mixHash(prefix.Hash(), v*0x100000001b3+0xcbf29ce484222325),
	}}
}

// New builds an atomic string name under the anonymous root.
func New(s string) Name {
	return Str(Anonymous(), s)
}

// FromString parses a dot-separated rendering into a name.
//
// Components consisting solely of decimal digits become numeral components.
// The empty string parses to the anonymous name.
func FromString(s string) Name {
	if s == "" {
		return Anonymous()
	}
	n := Anonymous()
	for _, part := range strings.Split(s, Separator) {
		if v, err := strconv.ParseUint(part, 10, 64); err == nil && part != "" {
			n = Num(n, v)
		} else {
			n = Str(n, part)
		}
	}
	return n
}

// Kind reports which constructor produced the name.
func (a Name) Kind() Kind {
	if a.n == nil {
		return KindAnonymous
	}
	return a.n.kind
}

// IsAnonymous reports whether the name is empty.
func (a Name) IsAnonymous() bool {
	return a.n == nil
}

// IsAtomic reports whether the name has at most one component.
func (a Name) IsAtomic() bool {
	return a.n == nil || a.n.prefix.n == nil
}

// Prefix returns the name with its last component removed. For the anonymous
// name it returns the anonymous name.
func (a Name) Prefix() Name {
	if a.n == nil {
		return a
	}
	return a.n.prefix
}

// Root returns the first component of the name as an atomic name, or the
// anonymous name for the empty chain.
func (a Name) Root() Name {
	if a.n == nil {
		return a
	}
	for !a.IsAtomic() {
		a = a.Prefix()
	}
	return a
}

// StrComponent returns the string component of a KindStr name.
func (a Name) StrComponent() string {
	if a.Kind() != KindStr {
		return ""
	}
	return a.n.str
}

// NumComponent returns the numeral component of a KindNum name.
func (a Name) NumComponent() uint64 {
	if a.Kind() != KindNum {
		return 0
	}
	return a.n.num
}

// Hash returns the hash cached at construction.
func (a Name) Hash() uint64 {
	if a.n == nil {
		return anonymousHash
	}
	return a.n.hash
}

// Equal reports structural equality.
//
// Chain identity and hash mismatch are checked before any traversal, so the
// common negative case never walks the prefixes.
func (a Name) Equal(b Name) bool {
	for {
		if a.n == b.n {
			return true
		}
		if a.n == nil || b.n == nil {
			return false
		}
		if a.n.hash != b.n.hash || a.n.kind != b.n.kind {
			return false
		}
		if a.n.kind == KindStr && a.n.str != b.n.str {
			return false
		}
		if a.n.kind == KindNum && a.n.num != b.n.num {
			return false
		}
		a, b = a.n.prefix, b.n.prefix
	}
}

// depth returns the number of components in the chain.
func (a Name) depth() int {
	d := 0
	for a.n != nil {
		d++
		a = a.n.prefix
	}
	return d
}

// Cmp is the total lexicographic order over prefix chains.
//
// Shorter chains order before their extensions; at equal depth the chains are
// compared outermost component first, numerals before strings. The order is
// independent of hashes and agrees with Equal on the zero case.
func (a Name) Cmp(b Name) int {
	da, db := a.depth(), b.depth()
	if c := cmpAligned(trim(a, da-db), trim(b, db-da)); c != 0 {
		return c
	}
	// Equal common prefix: the shorter chain wins.
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	default:
		return 0
	}
}

// trim drops k components from the end of the chain (no-op for k <= 0).
func trim(a Name, k int) Name {
	for ; k > 0; k-- {
		a = a.Prefix()
	}
	return a
}

// cmpAligned compares two chains of equal depth, outermost component first.
func cmpAligned(a, b Name) int {
	if a.n == nil || b.n == nil {
		return 0
	}
	if c := cmpAligned(a.n.prefix, b.n.prefix); c != 0 {
		return c
	}
	if a.n.kind != b.n.kind {
		if a.n.kind == KindNum {
			return -1
		}
		return 1
	}
	if a.n.kind == KindNum {
		switch {
		case a.n.num < b.n.num:
			return -1
		case a.n.num > b.n.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.n.str, b.n.str)
}

// QuickCmp orders names by hash first, falling back to Cmp only on hash
// collision. It reports 0 exactly when Equal holds, but the induced order is
// not lexicographic — use Cmp when presentation order matters.
func (a Name) QuickCmp(b Name) int {
	if a.n == b.n {
		return 0
	}
	ha, hb := a.Hash(), b.Hash()
	if ha != hb {
		if ha < hb {
			return -1
		}
		return 1
	}
	if a.Equal(b) {
		return 0
	}
	return a.Cmp(b)
}

// IsPrefixOf reports whether walking b's prefix chain reaches exactly a.
// Every name has the anonymous name and itself as prefixes.
func (a Name) IsPrefixOf(b Name) bool {
	for {
		if a.Equal(b) {
			return true
		}
		if b.n == nil {
			return false
		}
		b = b.n.prefix
	}
}

// Independent reports that neither name is a prefix of the other.
//
// Independence is preserved under simultaneous extension: if a and b are
// independent, so are any extensions of a and b.
func Independent(a, b Name) bool {
	return !a.IsPrefixOf(b) && !b.IsPrefixOf(a)
}

// ReplacePrefix substitutes newPrefix for oldPrefix in the chain.
//
// If oldPrefix is not a prefix of the name, the name is returned unchanged
// (same chain, no reallocation).
func (a Name) ReplacePrefix(oldPrefix, newPrefix Name) Name {
	if !oldPrefix.IsPrefixOf(a) {
		return a
	}
	return a.rebuildOn(oldPrefix, newPrefix)
}

func (a Name) rebuildOn(oldPrefix, newPrefix Name) Name {
	if a.Equal(oldPrefix) {
		return newPrefix
	}
	p := a.n.prefix.rebuildOn(oldPrefix, newPrefix)
	if a.n.kind == KindNum {
		return Num(p, a.n.num)
	}
	return Str(p, a.n.str)
}

// AppendAfter concatenates s onto the last component if it is a string, or
// adds s as a fresh component otherwise.
func (a Name) AppendAfter(s string) Name {
	if a.Kind() == KindStr {
		return Str(a.n.prefix, a.n.str+s)
	}
	return Str(a, s)
}

// AppendIndexAfter appends "_i" to the last component if it is a string, or
// adds i as a numeral component otherwise.
func (a Name) AppendIndexAfter(i uint64) Name {
	if a.Kind() == KindStr {
		return Str(a.n.prefix, a.n.str+"_"+strconv.FormatUint(i, 10))
	}
	return Num(a, i)
}

// String renders the name dot-joined. The anonymous name renders as
// "[anonymous]".
func (a Name) String() string {
	if a.n == nil {
		return "[anonymous]"
	}
	var parts []string
	for n := a; n.n != nil; n = n.n.prefix {
		if n.n.kind == KindStr {
			parts = append(parts, n.n.str)
		} else {
			parts = append(parts, strconv.FormatUint(n.n.num, 10))
		}
	}
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteString(parts[i])
		if i > 0 {
			sb.WriteString(Separator)
		}
	}
	return sb.String()
}

// internalPrefix namespaces process-wide unique names. The leading underscore
// marks them as internal.
var internalPrefix = New("_internal")

var uniqueCounter atomic.Uint64

// InternalUnique returns a fresh process-wide unique name.
//
// Names are drawn from a monotonically increasing numeral space under a
// reserved prefix, so distinct calls never collide, across goroutines
// included. A caller needing a family of related unique names should take one
// InternalUnique result as a prefix and number beneath it.
func InternalUnique() Name {
	return Num(internalPrefix, uniqueCounter.Add(1))
}

// IsInternal reports whether the name lives under an underscore-prefixed
// root and is therefore not meant to be user-visible.
func (a Name) IsInternal() bool {
	r := a.Root()
	return r.Kind() == KindStr && strings.HasPrefix(r.StrComponent(), "_")
}

// Generator produces fresh numeral-suffixed names for one run.
//
// Not safe for concurrent use; each run owns exactly one generator inside its
// state cell.
type Generator struct {
	prefix Name
	next   uint64
}

// NewGenerator creates a generator numbering beneath prefix.
func NewGenerator(prefix Name) Generator {
	return Generator{prefix: prefix}
}

// Next returns Num(prefix, next) and advances the counter.
func (g *Generator) Next() Name {
	n := Num(g.prefix, g.next)
	g.next++
	return n
}

// Peek reports the numeral the next call to Next will use.
func (g *Generator) Peek() uint64 {
	return g.next
}

var _ fmt.Stringer = Name{}
