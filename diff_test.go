// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func findTypeDiff(diff *AssemblyDiff, name string) *TypeDiff {
	for i := range diff.Types {
		if diff.Types[i].Name == name {
			return &diff.Types[i]
		}
	}
	return nil
}

func TestDiffAssembliesAddedAndRemovedTypes(t *testing.T) {
	a := &Assembly{Types: []TypeDefModel{{Name: "Gone", Namespace: "Acme"}}}
	b := &Assembly{Types: []TypeDefModel{{Name: "New", Namespace: "Acme"}}}

	diff := DiffAssemblies(a, b)

	if td := findTypeDiff(diff, "Gone"); td == nil || td.Kind != DiffRemoved {
		t.Errorf("expected Gone to be reported removed, got %+v", td)
	}
	if td := findTypeDiff(diff, "New"); td == nil || td.Kind != DiffAdded {
		t.Errorf("expected New to be reported added, got %+v", td)
	}
}

func TestDiffAssembliesUnchangedTypeProducesNoEntry(t *testing.T) {
	mk := func() *Assembly {
		return &Assembly{
			Types: []TypeDefModel{{Name: "Widget", Namespace: "Acme", Methods: []int{0}, Fields: []int{0}}},
			Methods: []MethodModel{{
				Name: "DoIt", DeclaringType: 0,
				Signature: MethodSig{Return: Plain("System.Void"), Name: "DoIt"},
			}},
			Fields: []FieldModel{{Name: "count", DeclaringType: 0, Type: Plain("System.Int32")}},
		}
	}
	a, b := mk(), mk()

	diff := DiffAssemblies(a, b)
	if td := findTypeDiff(diff, "Widget"); td != nil {
		t.Errorf("expected no diff entry for an unchanged type, got %+v", td)
	}
}

func TestDiffAssembliesMethodBodyChangeReportsModified(t *testing.T) {
	sig := MethodSig{Return: Plain("System.Void"), Name: "DoIt"}
	a := &Assembly{
		Types: []TypeDefModel{{Name: "Widget", Namespace: "Acme", Methods: []int{0}}},
		Methods: []MethodModel{{
			Name: "DoIt", DeclaringType: 0, Signature: sig,
			Body: &MethodBody{Instructions: []*Instruction{{Opcode: OpNop}, {Opcode: OpRet}}},
		}},
	}
	b := &Assembly{
		Types: []TypeDefModel{{Name: "Widget", Namespace: "Acme", Methods: []int{0}}},
		Methods: []MethodModel{{
			Name: "DoIt", DeclaringType: 0, Signature: sig,
			Body: &MethodBody{Instructions: []*Instruction{{Opcode: OpRet}}},
		}},
	}

	diff := DiffAssemblies(a, b)
	td := findTypeDiff(diff, "Widget")
	if td == nil || td.Kind != DiffModified {
		t.Fatalf("expected Widget to be modified, got %+v", td)
	}
	if len(td.Members) != 1 || td.Members[0].Diff != DiffModified || td.Members[0].Kind != MemberMethod {
		t.Errorf("expected one modified method finding, got %+v", td.Members)
	}
}

func TestDiffAssembliesTombstonedTypeIgnored(t *testing.T) {
	a := &Assembly{Types: []TypeDefModel{{Name: "", Namespace: ""}}}
	b := &Assembly{Types: []TypeDefModel{{Name: "", Namespace: ""}}}

	diff := DiffAssemblies(a, b)
	if len(diff.Types) != 0 {
		t.Errorf("tombstoned types on both sides should produce no diff entries, got %+v", diff.Types)
	}
}

func TestBodiesDifferLengthMismatch(t *testing.T) {
	a := &MethodBody{Instructions: []*Instruction{{Opcode: OpNop}}}
	b := &MethodBody{Instructions: []*Instruction{{Opcode: OpNop}, {Opcode: OpRet}}}
	if !bodiesDiffer(a, b) {
		t.Error("bodiesDiffer() should report true for differing lengths")
	}
}

func TestBodiesDifferNilHandling(t *testing.T) {
	if bodiesDiffer(nil, nil) {
		t.Error("bodiesDiffer(nil, nil) should be false")
	}
	if !bodiesDiffer(nil, &MethodBody{}) {
		t.Error("bodiesDiffer(nil, non-nil) should be true")
	}
}
