// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func TestLayoutBodyAssignsSequentialOffsets(t *testing.T) {
	body := &MethodBody{}
	NewEmitter().Nop().LoadInt(1000).Add().Return().ApplyTo(body)

	want := []uint32{0, 1, 6, 7} // nop(1), ldc.i4(1+4), add(1), ret(1)
	for i, w := range want {
		if body.Instructions[i].Offset != w {
			t.Errorf("instrs[%d].Offset = %d, want %d", i, body.Instructions[i].Offset, w)
		}
	}
}

func TestLayoutBodyKeepsForwardBranchLongWhenFar(t *testing.T) {
	body := &MethodBody{}
	target := &Instruction{Opcode: OpNop}
	e := NewEmitter().Branch(target)
	for i := 0; i < 200; i++ {
		e.Nop()
	}
	e.push(target)
	e.ApplyTo(body)

	branch := body.Instructions[0]
	if branch.Opcode != OpBr {
		t.Errorf("far forward branch opcode = %v, want OpBr (long form)", branch.Opcode)
	}
	if branch.Offset != 0 {
		t.Errorf("branch offset = %d, want 0", branch.Offset)
	}
}

func TestLayoutBodyShrinksNearbyForwardBranchToShortForm(t *testing.T) {
	body := &MethodBody{}
	target := &Instruction{Opcode: OpNop}
	e := NewEmitter().Nop().Branch(target)
	e.push(target)
	e.ApplyTo(body)

	branch := body.Instructions[1]
	if branch.Opcode != OpBrS {
		t.Errorf("nearby forward branch opcode = %v, want OpBrS (short form)", branch.Opcode)
	}
	// nop(1) + br.s(1+1) = offset 3 for the target.
	if body.Instructions[2].Offset != 3 {
		t.Errorf("target offset = %d, want 3 once the branch shrank", body.Instructions[2].Offset)
	}
}

func TestLayoutBodyShrinksBackwardBranchToShortForm(t *testing.T) {
	body := &MethodBody{}
	e := NewEmitter()
	target := e.Nop().Instructions()[0]
	e.Branch(target)
	e.ApplyTo(body)

	branch := body.Instructions[1]
	if branch.Opcode != OpBrS {
		t.Errorf("nearby backward branch opcode = %v, want OpBrS (short form)", branch.Opcode)
	}
}

func TestLayoutBodyOnEmptyBodyIsNoOp(t *testing.T) {
	body := &MethodBody{}
	LayoutBody(body) // must not panic on a nil/empty Instructions slice
	if len(body.Instructions) != 0 {
		t.Errorf("LayoutBody() on an empty body produced instructions: %+v", body.Instructions)
	}
}

func TestInstructionSizeVariants(t *testing.T) {
	cases := []struct {
		name string
		in   *Instruction
		want int
	}{
		{"nop", &Instruction{Opcode: OpNop, Kind: OperandNone}, 1},
		{"ldc.i4.s", &Instruction{Opcode: OpLdcI4S, Kind: OperandInt8}, 2},
		{"ldc.i4", &Instruction{Opcode: OpLdcI4, Kind: OperandInt32}, 5},
		{"ldc.i8", &Instruction{Opcode: OpLdcI8, Kind: OperandInt64}, 9},
		{"ldstr", &Instruction{Opcode: OpLdstr, Kind: OperandString}, 5},
		{"call (one-byte opcode + token)", &Instruction{Opcode: OpCall, Kind: OperandMember}, 5},
		{"ldarg.s (short variable)", &Instruction{Opcode: OpLdargS, Kind: OperandVariable}, 2},
		{"ldarg (long variable, two-byte opcode)", &Instruction{Opcode: OpLdarg, Kind: OperandVariable}, 4},
		{"br (long branch)", &Instruction{Opcode: OpBr, Kind: OperandBranchTarget}, 5},
		{"br.s (short branch)", &Instruction{Opcode: OpBrS, Kind: OperandBranchTarget}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := instructionSize(c.in); got != c.want {
				t.Errorf("instructionSize(%s) = %d, want %d", c.name, got, c.want)
			}
		})
	}
}
