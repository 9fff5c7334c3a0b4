// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

// DiffKind classifies one entry in an AssemblyDiff.
type DiffKind string

// The closed set of diff kinds.
const (
	DiffAdded    DiffKind = "added"
	DiffRemoved  DiffKind = "removed"
	DiffModified DiffKind = "modified"
)

// TypeDiff is one type-level finding: the type's qualified name, its kind,
// and (for a matched pair) the member-level findings within it.
type TypeDiff struct {
	Namespace string     `json:"namespace"`
	Name      string     `json:"name"`
	Kind      DiffKind   `json:"kind"`
	Members   []MemberDiff `json:"members,omitempty"`
}

// MemberDiff is one member-level finding within a matched type pair.
type MemberDiff struct {
	Kind MemberKind `json:"kind"`
	Key  string     `json:"key"` // canonical signature for methods, name for everything else
	Diff DiffKind   `json:"diff"`
}

// AssemblyDiff is the full structural comparison of two assembly models.
// It reports only structural drift; it never attempts semantic
// equivalence between bodies.
type AssemblyDiff struct {
	Types []TypeDiff `json:"types"`
}

// DiffAssemblies walks a's and b's top-level type tables and produces an
// AssemblyDiff. Types are matched by qualified name (namespace + name);
// within a matched pair, methods are keyed by canonical signature, and
// fields/properties/events by name only.
func DiffAssemblies(a, b *Assembly) *AssemblyDiff {
	aTypes := qualifiedTypeIndex(a)
	bTypes := qualifiedTypeIndex(b)

	var diff AssemblyDiff
	seen := make(map[string]bool)

	for key, aIdx := range aTypes {
		seen[key] = true
		bIdx, ok := bTypes[key]
		t := a.Types[aIdx]
		if !ok {
			diff.Types = append(diff.Types, TypeDiff{Namespace: t.Namespace, Name: t.Name, Kind: DiffRemoved})
			continue
		}
		members := diffMembers(a, aIdx, b, bIdx)
		if len(members) > 0 {
			diff.Types = append(diff.Types, TypeDiff{Namespace: t.Namespace, Name: t.Name, Kind: DiffModified, Members: members})
		}
	}

	for key, bIdx := range bTypes {
		if seen[key] {
			continue
		}
		t := b.Types[bIdx]
		diff.Types = append(diff.Types, TypeDiff{Namespace: t.Namespace, Name: t.Name, Kind: DiffAdded})
	}

	return &diff
}

func qualifiedTypeIndex(a *Assembly) map[string]int {
	idx := make(map[string]int, len(a.Types))
	for i, t := range a.Types {
		if t.Name == "" {
			continue // tombstoned
		}
		idx[t.Namespace+"."+t.Name] = i
	}
	return idx
}

func diffMembers(a *Assembly, aTypeIdx int, b *Assembly, bTypeIdx int) []MemberDiff {
	var out []MemberDiff

	aMethods := methodSignatureIndex(a, aTypeIdx)
	bMethods := methodSignatureIndex(b, bTypeIdx)
	out = append(out, diffKeyedMethods(a, aMethods, b, bMethods)...)

	aFields := fieldNameIndex(a, aTypeIdx)
	bFields := fieldNameIndex(b, bTypeIdx)
	out = append(out, diffKeyedNames(MemberField, aFields, bFields)...)

	aProps := propertyNameIndex(a, aTypeIdx)
	bProps := propertyNameIndex(b, bTypeIdx)
	out = append(out, diffKeyedNames(MemberProperty, aProps, bProps)...)

	aEvents := eventNameIndex(a, aTypeIdx)
	bEvents := eventNameIndex(b, bTypeIdx)
	out = append(out, diffKeyedNames(MemberEvent, aEvents, bEvents)...)

	return out
}

func propertyNameIndex(a *Assembly, typeIdx int) map[string]bool {
	idx := make(map[string]bool)
	for _, pi := range a.Types[typeIdx].Properties {
		if p := a.Properties[pi]; p.Name != "" {
			idx[p.Name] = true
		}
	}
	return idx
}

func eventNameIndex(a *Assembly, typeIdx int) map[string]bool {
	idx := make(map[string]bool)
	for _, ei := range a.Types[typeIdx].Events {
		if ev := a.Events[ei]; ev.Name != "" {
			idx[ev.Name] = true
		}
	}
	return idx
}

func methodSignatureIndex(a *Assembly, typeIdx int) map[string]int {
	idx := make(map[string]int)
	for _, mi := range a.Types[typeIdx].Methods {
		m := a.Methods[mi]
		if m.Name == "" {
			continue
		}
		idx[m.Signature.Render()] = mi
	}
	return idx
}

func fieldNameIndex(a *Assembly, typeIdx int) map[string]bool {
	idx := make(map[string]bool)
	for _, fi := range a.Types[typeIdx].Fields {
		f := a.Fields[fi]
		if f.Name == "" {
			continue
		}
		idx[f.Name] = true
	}
	return idx
}

func diffKeyedMethods(a *Assembly, aMethods map[string]int, b *Assembly, bMethods map[string]int) []MemberDiff {
	var out []MemberDiff
	seen := make(map[string]bool)

	for sig, aIdx := range aMethods {
		seen[sig] = true
		bIdx, ok := bMethods[sig]
		if !ok {
			out = append(out, MemberDiff{Kind: MemberMethod, Key: sig, Diff: DiffRemoved})
			continue
		}
		if bodiesDiffer(a.Methods[aIdx].Body, b.Methods[bIdx].Body) {
			out = append(out, MemberDiff{Kind: MemberMethod, Key: sig, Diff: DiffModified})
		}
	}
	for sig := range bMethods {
		if !seen[sig] {
			out = append(out, MemberDiff{Kind: MemberMethod, Key: sig, Diff: DiffAdded})
		}
	}
	return out
}

// bodiesDiffer compares two method bodies by length then opcode sequence,
// per §4.12: any difference in either yields modified. It does not attempt
// semantic equivalence (e.g. two instruction sequences that compute the
// same result via different opcodes are "modified", not "equal").
func bodiesDiffer(a, b *MethodBody) bool {
	if (a == nil) != (b == nil) {
		return true
	}
	if a == nil {
		return false
	}
	if len(a.Instructions) != len(b.Instructions) {
		return true
	}
	for i := range a.Instructions {
		if a.Instructions[i].Opcode != b.Instructions[i].Opcode {
			return true
		}
	}
	return false
}

func diffKeyedNames(kind MemberKind, a, b map[string]bool) []MemberDiff {
	var out []MemberDiff
	for name := range a {
		if !b[name] {
			out = append(out, MemberDiff{Kind: kind, Key: name, Diff: DiffRemoved})
		}
	}
	for name := range b {
		if !a[name] {
			out = append(out, MemberDiff{Kind: kind, Key: name, Diff: DiffAdded})
		}
	}
	return out
}
