// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

// LayoutBody recomputes every instruction's byte Offset and, for
// unconditional branches, picks the short (br.s) encoding whenever the
// displacement to its target fits a signed byte — the pass §4.8 requires
// the emitter to run "after all instructions are known". Every mutation
// that can change a body's instruction sequence (Emitter's ApplyTo/
// InsertBefore/InsertAfter, every Injector primitive) calls this before
// returning, so Offset is always current and InjectAtOffset's exact-offset
// matching operates on real byte positions rather than stale zeros.
//
// Conditional branches (brtrue, brfalse) have no short-form opcode in this
// module's table, so they always take the long (4-byte displacement) form;
// only br/br.s participate in the short-vs-long choice.
func LayoutBody(body *MethodBody) {
	instrs := body.Instructions
	if len(instrs) == 0 {
		return
	}

	// Start every branch in its long form; shrinking only ever reduces an
	// instruction's size, so long is a safe upper bound to iterate down
	// from without ever having to grow one back.
	for _, in := range instrs {
		if in.Kind == OperandBranchTarget && in.Opcode == OpBrS {
			in.Opcode = OpBr
		}
	}

	for {
		assignOffsets(instrs)
		if !shrinkBranches(instrs) {
			break
		}
	}
}

func assignOffsets(instrs []*Instruction) {
	offset := uint32(0)
	for _, in := range instrs {
		in.Offset = offset
		offset += uint32(instructionSize(in))
	}
}

// shrinkBranches converts any long-form unconditional branch whose target
// would still be reachable with a signed-byte displacement once this
// instruction itself shrinks to br.s. Returns whether anything changed, so
// LayoutBody can re-assign offsets (a shrink can move every subsequent
// instruction, including the branch target, earlier) and check again until
// the layout stabilizes.
func shrinkBranches(instrs []*Instruction) bool {
	changed := false
	for _, in := range instrs {
		if in.Opcode != OpBr || in.BranchTarget == nil {
			continue
		}
		const shortSize = 2 // one opcode byte plus a signed-byte displacement
		nextOffset := in.Offset + shortSize
		disp := int64(in.BranchTarget.Offset) - int64(nextOffset)
		if disp >= -128 && disp <= 127 {
			in.Opcode = OpBrS
			changed = true
		}
	}
	return changed
}

// instructionSize returns op's total encoded length: its opcode field plus
// whatever operand its Kind requires. Metadata tokens (member/type/string
// references) are always 4-byte table indexes; short local/argument forms
// take a 1-byte index, long forms 2 bytes; br.s takes a signed-byte
// displacement, every other branch a 4-byte one.
func instructionSize(in *Instruction) int {
	switch in.Kind {
	case OperandNone:
		return in.Opcode.Size()
	case OperandInt8, OperandUInt8:
		return in.Opcode.Size() + 1
	case OperandInt16:
		return in.Opcode.Size() + 2
	case OperandInt32, OperandFloat32:
		return in.Opcode.Size() + 4
	case OperandInt64, OperandFloat64:
		return in.Opcode.Size() + 8
	case OperandString, OperandMember, OperandType:
		return in.Opcode.Size() + 4
	case OperandVariable:
		if isShortVariableForm(in.Opcode) {
			return in.Opcode.Size() + 1
		}
		return in.Opcode.Size() + 2
	case OperandBranchTarget:
		if in.Opcode == OpBrS {
			return in.Opcode.Size() + 1
		}
		return in.Opcode.Size() + 4
	default:
		return in.Opcode.Size()
	}
}

func isShortVariableForm(op Opcode) bool {
	switch op {
	case OpLdargS, OpStargS, OpLdlocS, OpStlocS:
		return true
	}
	return false
}
