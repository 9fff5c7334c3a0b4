// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func freshTestAssembly() *Assembly {
	return &Assembly{
		Types: []TypeDefModel{
			{Token: typeDefToken(0), Name: "Widget", Namespace: "Acme", Methods: []int{0}, Fields: []int{0}},
		},
		Methods: []MethodModel{
			{Token: methodDefToken(0), Name: "DoIt", DeclaringType: 0,
				Signature: MethodSig{Return: Plain("System.Void"), Name: "DoIt"}},
		},
		Fields:          []FieldModel{{Token: fieldToken(0), Name: "count", DeclaringType: 0, Type: Plain("System.Int32")}},
		baseTypeCount:   1,
		baseMethodCount: 1,
		baseFieldCount:  1,
	}
}

func TestRewriterAddType(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)

	factory := NewTypeFactory()
	id := rw.AddType(*factory.NewClass("Acme", "Gadget"))

	if len(asm.Types) != 2 {
		t.Fatalf("AddType() did not append; len(Types) = %d", len(asm.Types))
	}
	if asm.Types[1].Name != "Gadget" || asm.Types[1].Namespace != "Acme" {
		t.Errorf("AddType() produced %+v", asm.Types[1])
	}
	if id.Kind != KindType {
		t.Errorf("AddType() returned MemberID kind %v, want KindType", id.Kind)
	}
	if len(rw.History()) != 1 || rw.History()[0].Kind != JournalTypeAdded {
		t.Errorf("AddType() journal = %+v", rw.History())
	}
}

func TestRewriterRemoveTypeTombstonesInPlace(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)

	if err := rw.RemoveType(0); err != nil {
		t.Fatalf("RemoveType() failed: %v", err)
	}
	if len(asm.Types) != 1 {
		t.Fatalf("RemoveType() must not shift the arena; len(Types) = %d", len(asm.Types))
	}
	if asm.Types[0].Name != "" {
		t.Errorf("RemoveType() did not clear the name: %+v", asm.Types[0])
	}
	if asm.Types[0].Token != typeDefToken(0) {
		t.Errorf("RemoveType() must preserve the original token so the index stays addressable")
	}
}

func TestRewriterRemoveTypeOutOfRange(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	err := rw.RemoveType(99)
	if err == nil {
		t.Fatal("RemoveType() out of range should fail")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Code != CodeTypeNotFound {
		t.Errorf("RemoveType() error = %v, want CodeTypeNotFound", err)
	}
}

func TestRewriterAddMethodUnknownDeclaringType(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	factory := NewTypeFactory()
	_, err := rw.AddMethod(99, factory.NewMethod("Foo", nil, Plain("System.Void"), taPublic))
	if err == nil {
		t.Fatal("AddMethod() with an out-of-range declaring type should fail")
	}
}

func TestRewriterAddMethodLinksToType(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	factory := NewTypeFactory()
	id, err := rw.AddMethod(0, factory.NewMethod("Foo", nil, Plain("System.Void"), taPublic))
	if err != nil {
		t.Fatalf("AddMethod() failed: %v", err)
	}
	if id.Kind != KindMethod {
		t.Errorf("AddMethod() kind = %v, want KindMethod", id.Kind)
	}
	found := false
	for _, mi := range asm.Types[0].Methods {
		if asm.Methods[mi].Name == "Foo" {
			found = true
		}
	}
	if !found {
		t.Error("AddMethod() did not link the new method into its declaring type's Methods slice")
	}
}

func TestRewriterRenameMethodUpdatesSignatureHash(t *testing.T) {
	asm := freshTestAssembly()
	before := asm.Methods[0].SignatureHash
	rw := NewRewriter(asm, nil)

	if err := rw.RenameMethod(0, "DoItNow"); err != nil {
		t.Fatalf("RenameMethod() failed: %v", err)
	}
	if asm.Methods[0].Name != "DoItNow" || asm.Methods[0].Signature.Name != "DoItNow" {
		t.Errorf("RenameMethod() did not update name/signature: %+v", asm.Methods[0])
	}
	if asm.Methods[0].SignatureHash == before {
		t.Error("RenameMethod() should change the signature hash since the name is embedded in it")
	}
}

func TestRewriterSetTypeAttrs(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	if err := rw.SetTypeAttrs(0, taPublic|taSealed); err != nil {
		t.Fatalf("SetTypeAttrs() failed: %v", err)
	}
	if asm.Types[0].Attrs != taPublic|taSealed {
		t.Errorf("SetTypeAttrs() Attrs = %#x", asm.Types[0].Attrs)
	}
}

func TestRewriterHistoryIsACopy(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	rw.AddType(*NewTypeFactory().NewClass("Acme", "A"))

	h := rw.History()
	h[0].Subject = "tampered"

	if rw.History()[0].Subject == "tampered" {
		t.Error("History() must return a defensive copy")
	}
}

func TestRewriterLastN(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	factory := NewTypeFactory()
	rw.AddType(*factory.NewClass("Acme", "A"))
	rw.AddType(*factory.NewClass("Acme", "B"))
	rw.AddType(*factory.NewClass("Acme", "C"))

	last2 := rw.LastN(2)
	if len(last2) != 2 {
		t.Fatalf("LastN(2) length = %d, want 2", len(last2))
	}
	if last2[0].Subject == last2[1].Subject {
		t.Errorf("LastN(2) entries should be distinct: %+v", last2)
	}

	if got := rw.LastN(0); got != nil {
		t.Errorf("LastN(0) = %v, want nil", got)
	}
	if got := rw.LastN(100); len(got) != 3 {
		t.Errorf("LastN(100) length = %d, want 3 (capped at history length)", len(got))
	}
}

func TestRewriterVerifyDetectsBrokenBackReference(t *testing.T) {
	asm := freshTestAssembly()
	asm.Methods[0].DeclaringType = 1 // now inconsistent with Types[0].Methods referencing it
	rw := NewRewriter(asm, nil)

	findings := rw.Verify()
	if len(findings) == 0 {
		t.Error("Verify() should report the declaring-type back-reference mismatch")
	}
}

func TestRewriterVerifyCleanModelReportsNothing(t *testing.T) {
	asm := freshTestAssembly()
	rw := NewRewriter(asm, nil)
	if findings := rw.Verify(); len(findings) != 0 {
		t.Errorf("Verify() on an untouched, consistent model = %v, want none", findings)
	}
}

func TestRewriterMVIDRegeneratesOnceAfterMutation(t *testing.T) {
	asm := freshTestAssembly()
	original := asm.MVID
	rw := NewRewriter(asm, nil)

	rw.regenerateMVIDIfMutated()
	if asm.MVID != original {
		t.Error("regenerateMVIDIfMutated() with an empty journal must not touch the MVID")
	}

	rw.AddType(*NewTypeFactory().NewClass("Acme", "A"))
	rw.regenerateMVIDIfMutated()
	first := asm.MVID
	if first == original {
		t.Error("regenerateMVIDIfMutated() after a mutation should mint a fresh MVID")
	}

	rw.regenerateMVIDIfMutated()
	if asm.MVID != first {
		t.Error("regenerateMVIDIfMutated() must be idempotent after the first mint")
	}
}
