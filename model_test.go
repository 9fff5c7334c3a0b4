// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"testing"

	"github.com/google/uuid"
)

func sampleAssembly() *Assembly {
	mvid := uuid.New()
	return &Assembly{
		MVID: mvid,
		Types: []TypeDefModel{
			{Token: 0x02000001, Name: "Widget", Namespace: "Acme", Methods: []int{0}},
		},
		Methods: []MethodModel{
			{Token: 0x06000001, Name: "DoIt", DeclaringType: 0, SignatureHash: "ABCD1234ABCD1234"},
		},
		Fields: []FieldModel{
			{Token: 0x04000001, Name: "count", DeclaringType: 0},
		},
		Properties: []PropertyModel{
			{Token: 0x17000001, Name: "Count", DeclaringType: 0, Getter: 0, Setter: -1},
		},
		Events: []EventModel{
			{Token: 0x14000001, Name: "Changed", DeclaringType: 0},
		},
		References: []AssemblyRefModel{{Name: "mscorlib", Version: "4.0.0.0"}},
	}
}

func TestAssemblyTypeCount(t *testing.T) {
	a := sampleAssembly()
	if got := a.TypeCount(); got != 1 {
		t.Errorf("TypeCount() = %d, want 1", got)
	}
}

func TestAssemblyCountsSkipTombstones(t *testing.T) {
	a := sampleAssembly()
	a.Types = append(a.Types, TypeDefModel{Token: 0x02000002}) // tombstoned: no Name
	a.Methods = append(a.Methods, MethodModel{Token: 0x06000002, DeclaringType: 0})
	a.Fields = append(a.Fields, FieldModel{Token: 0x04000002, DeclaringType: 0})

	if got := a.TypeCount(); got != 1 {
		t.Errorf("TypeCount() with a tombstoned type = %d, want 1", got)
	}
	if got := a.MethodCount(); got != 1 {
		t.Errorf("MethodCount() with a tombstoned method = %d, want 1", got)
	}
	if got := a.FieldCount(); got != 1 {
		t.Errorf("FieldCount() with a tombstoned field = %d, want 1", got)
	}
}

func TestAssemblyDependencies(t *testing.T) {
	a := sampleAssembly()
	deps := a.Dependencies()
	if len(deps) != 1 || deps[0] != "mscorlib" {
		t.Errorf("Dependencies() = %v, want [mscorlib]", deps)
	}
}

func TestMemberIDAccessorsUseAssemblyMVID(t *testing.T) {
	a := sampleAssembly()

	cases := []struct {
		name string
		id   MemberID
		kind Kind
	}{
		{"type", a.TypeID(0), KindType},
		{"method", a.MethodID(0), KindMethod},
		{"field", a.FieldID(0), KindField},
		{"property", a.PropertyID(0), KindProperty},
		{"event", a.EventID(0), KindEvent},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.id.MVID != a.MVID {
				t.Errorf("%s id MVID = %v, want %v", c.name, c.id.MVID, a.MVID)
			}
			if c.id.Kind != c.kind {
				t.Errorf("%s id Kind = %v, want %v", c.name, c.id.Kind, c.kind)
			}
		})
	}
}

func TestRemapFindsByToken(t *testing.T) {
	a := sampleAssembly()
	old := MemberID{MVID: a.MVID, Token: 0x06000001, Kind: KindMethod}

	got, ok := a.Remap(old)
	if !ok || got != a.MethodID(0) {
		t.Errorf("Remap() = %v, %v, want %v, true", got, ok, a.MethodID(0))
	}
}

func TestRemapFailsOnForeignMVID(t *testing.T) {
	a := sampleAssembly()
	foreign := MemberID{MVID: uuid.New(), Token: 0x06000001, Kind: KindMethod}

	if _, ok := a.Remap(foreign); ok {
		t.Error("Remap() across a different MVID should fail")
	}
}

func TestRemapFailsWhenTokenNoLongerPresent(t *testing.T) {
	a := sampleAssembly()
	old := MemberID{MVID: a.MVID, Token: 0x06009999, Kind: KindMethod}

	if _, ok := a.Remap(old); ok {
		t.Error("Remap() for a vanished token should fail")
	}
}

func TestRemapBySignatureHash(t *testing.T) {
	a := sampleAssembly()

	got, ok := a.RemapBySignatureHash("ABCD1234ABCD1234")
	if !ok || got != a.MethodID(0) {
		t.Errorf("RemapBySignatureHash() = %v, %v, want %v, true", got, ok, a.MethodID(0))
	}

	if _, ok := a.RemapBySignatureHash("NOPE"); ok {
		t.Error("RemapBySignatureHash() for an unknown hash should fail")
	}
}

func TestRemapBySignatureHashSkipsMethodsWithNoHash(t *testing.T) {
	a := &Assembly{
		MVID:    uuid.New(),
		Methods: []MethodModel{{Token: 1, Name: "Anonymous"}},
	}
	if _, ok := a.RemapBySignatureHash(""); ok {
		t.Error("RemapBySignatureHash(\"\") should never match a method with no recorded hash")
	}
}
