// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func TestOpcodeIsTwoByte(t *testing.T) {
	tests := []struct {
		op   Opcode
		want bool
	}{
		{OpNop, false},
		{OpRet, false},
		{OpLdarg, true},
		{OpCeq, true},
		{OpStloc, true},
	}
	for _, tt := range tests {
		if got := tt.op.IsTwoByte(); got != tt.want {
			t.Errorf("%v.IsTwoByte() = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestOpcodeSize(t *testing.T) {
	if OpNop.Size() != 1 {
		t.Errorf("OpNop.Size() = %d, want 1", OpNop.Size())
	}
	if OpCeq.Size() != 2 {
		t.Errorf("OpCeq.Size() = %d, want 2", OpCeq.Size())
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpAdd.String(); got != "add" {
		t.Errorf("OpAdd.String() = %q, want %q", got, "add")
	}
	if got := Opcode(0xABCD).String(); got == "" {
		t.Error("String() of an unknown opcode should not be empty")
	}
}
