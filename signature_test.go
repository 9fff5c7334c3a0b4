// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func TestTypeSigRenderPlain(t *testing.T) {
	if got := Plain("System.Int32").Render(); got != "System.Int32" {
		t.Errorf("Plain render = %q", got)
	}
}

func TestTypeSigRenderGenericInstance(t *testing.T) {
	sig := TypeSig{
		Kind:     SigGenericInstance,
		FullName: "System.Collections.Generic.List",
		Args:     []TypeSig{Plain("System.String")},
	}
	want := "System.Collections.Generic.List<System.String>"
	if got := sig.Render(); got != want {
		t.Errorf("generic instance render = %q, want %q", got, want)
	}
}

func TestTypeSigRenderArrayRanks(t *testing.T) {
	vector := TypeSig{Kind: SigArray, Of: func() *TypeSig { s := Plain("System.Byte"); return &s }(), Rank: 1}
	if got := vector.Render(); got != "System.Byte[]" {
		t.Errorf("rank-1 array render = %q, want System.Byte[]", got)
	}

	of := Plain("System.Int32")
	matrix := TypeSig{Kind: SigArray, Of: &of, Rank: 2}
	if got := matrix.Render(); got != "System.Int32[,]" {
		t.Errorf("rank-2 array render = %q, want System.Int32[,]", got)
	}
}

func TestTypeSigRenderByRefAndPointer(t *testing.T) {
	of := Plain("System.Int32")
	byRef := TypeSig{Kind: SigByRef, Of: &of}
	if got := byRef.Render(); got != "System.Int32&" {
		t.Errorf("byref render = %q, want System.Int32&", got)
	}
	ptr := TypeSig{Kind: SigPointer, Of: &of}
	if got := ptr.Render(); got != "System.Int32*" {
		t.Errorf("pointer render = %q, want System.Int32*", got)
	}
}

func TestTypeSigRenderModifier(t *testing.T) {
	of := Plain("System.Int32")
	modreq := TypeSig{Kind: SigModifier, Of: &of, ModRequired: true, ModName: "System.Runtime.CompilerServices.IsConst"}
	want := "System.Int32 modreq(System.Runtime.CompilerServices.IsConst)"
	if got := modreq.Render(); got != want {
		t.Errorf("modreq render = %q, want %q", got, want)
	}
	modopt := TypeSig{Kind: SigModifier, Of: &of, ModRequired: false, ModName: "Foo"}
	if got := modopt.Render(); got != "System.Int32 modopt(Foo)" {
		t.Errorf("modopt render = %q", got)
	}
}

func TestMethodSigRenderNonGeneric(t *testing.T) {
	sig := MethodSig{
		Return: Plain("System.Void"),
		Name:   "DoIt",
		Params: []ParamSig{{Name: "x", Type: Plain("System.Int32")}, {Name: "y", Type: Plain("System.String")}},
	}
	want := "System.Void DoIt(System.Int32,System.String)"
	if got := sig.Render(); got != want {
		t.Errorf("method render = %q, want %q", got, want)
	}
}

func TestMethodSigRenderGenericInstantiation(t *testing.T) {
	sig := MethodSig{
		Return:   Plain("T"),
		Name:     "Identity",
		Generics: []TypeSig{Plain("System.Int32")},
	}
	want := "T Identity<System.Int32>()"
	if got := sig.Render(); got != want {
		t.Errorf("generic method render = %q, want %q", got, want)
	}
}

func TestHashIsDeterministicAndSensitiveToInput(t *testing.T) {
	a := Hash("System.Void DoIt()")
	b := Hash("System.Void DoIt()")
	if a != b {
		t.Error("Hash() should be deterministic for identical input")
	}
	if len(a) != 16 {
		t.Errorf("Hash() length = %d, want 16 hex chars", len(a))
	}
	if c := Hash("System.Void DoItNow()"); c == a {
		t.Error("Hash() should differ for different signatures")
	}
}
