// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

// Emitter is a builder over a single MethodBody: each call appends one
// well-formed Instruction with a correctly-sized opcode/operand pair. It
// never verifies IL type-stack balance — that is a separable validator's
// job, not this one's.
type Emitter struct {
	instrs []*Instruction
}

// NewEmitter starts an empty instruction sequence.
func NewEmitter() *Emitter { return &Emitter{} }

// Instructions returns the sequence built so far, in order.
func (e *Emitter) Instructions() []*Instruction {
	return append([]*Instruction(nil), e.instrs...)
}

func (e *Emitter) push(i *Instruction) *Emitter {
	e.instrs = append(e.instrs, i)
	return e
}

// Nop appends a no-op.
func (e *Emitter) Nop() *Emitter {
	return e.push(&Instruction{Opcode: OpNop})
}

// LoadInt appends the shortest-encoding integer push for v: a dedicated
// opcode for -1..8, ldc.i4.s for v in [-128,127], ldc.i4 otherwise.
func (e *Emitter) LoadInt(v int64) *Emitter {
	switch {
	case v >= -1 && v <= 8:
		return e.push(&Instruction{Opcode: smallIntOpcodes[v+1], Kind: OperandNone})
	case v >= -128 && v <= 127:
		return e.push(&Instruction{Opcode: OpLdcI4S, Kind: OperandInt8, IntOperand: v})
	default:
		return e.push(&Instruction{Opcode: OpLdcI4, Kind: OperandInt32, IntOperand: v})
	}
}

// smallIntOpcodes[v+1] is the dedicated opcode for integer v in -1..8.
var smallIntOpcodes = [10]Opcode{
	OpLdcI4M1, OpLdcI40, OpLdcI41, OpLdcI42, OpLdcI43,
	OpLdcI44, OpLdcI45, OpLdcI46, OpLdcI47, OpLdcI48,
}

// LoadLong appends an 8-byte integer push.
func (e *Emitter) LoadLong(v int64) *Emitter {
	return e.push(&Instruction{Opcode: OpLdcI8, Kind: OperandInt64, IntOperand: v})
}

// LoadFloat appends a 4-byte float push.
func (e *Emitter) LoadFloat(v float64) *Emitter {
	return e.push(&Instruction{Opcode: OpLdcR4, Kind: OperandFloat32, FloatOperand: v})
}

// LoadDouble appends an 8-byte float push.
func (e *Emitter) LoadDouble(v float64) *Emitter {
	return e.push(&Instruction{Opcode: OpLdcR8, Kind: OperandFloat64, FloatOperand: v})
}

// LoadString appends a string-literal push.
func (e *Emitter) LoadString(s string) *Emitter {
	return e.push(&Instruction{Opcode: OpLdstr, Kind: OperandString, StringOperand: s})
}

// LoadNull appends a null-reference push.
func (e *Emitter) LoadNull() *Emitter {
	return e.push(&Instruction{Opcode: OpLdnull})
}

// LoadArg appends an argument load, using the dedicated opcode for 0..3,
// short form for 4..255, long form above.
func (e *Emitter) LoadArg(index int) *Emitter {
	switch {
	case index >= 0 && index <= 3:
		return e.push(&Instruction{Opcode: [4]Opcode{OpLdarg0, OpLdarg1, OpLdarg2, OpLdarg3}[index]})
	case index <= 255:
		return e.push(&Instruction{Opcode: OpLdargS, Kind: OperandVariable, VarOperand: index})
	default:
		return e.push(&Instruction{Opcode: OpLdarg, Kind: OperandVariable, VarOperand: index})
	}
}

// StoreArg appends an argument store, short form for 0..255, long form above.
func (e *Emitter) StoreArg(index int) *Emitter {
	if index <= 255 {
		return e.push(&Instruction{Opcode: OpStargS, Kind: OperandVariable, VarOperand: index})
	}
	return e.push(&Instruction{Opcode: OpStarg, Kind: OperandVariable, VarOperand: index})
}

// LoadLocal appends a local-variable load, using the dedicated opcode for
// 0..3, short form for 4..255, long form above.
func (e *Emitter) LoadLocal(index int) *Emitter {
	switch {
	case index >= 0 && index <= 3:
		return e.push(&Instruction{Opcode: [4]Opcode{OpLdloc0, OpLdloc1, OpLdloc2, OpLdloc3}[index]})
	case index <= 255:
		return e.push(&Instruction{Opcode: OpLdlocS, Kind: OperandVariable, VarOperand: index})
	default:
		return e.push(&Instruction{Opcode: OpLdloc, Kind: OperandVariable, VarOperand: index})
	}
}

// StoreLocal appends a local-variable store, using the dedicated opcode for
// 0..3, short form for 4..255, long form above.
func (e *Emitter) StoreLocal(index int) *Emitter {
	switch {
	case index >= 0 && index <= 3:
		return e.push(&Instruction{Opcode: [4]Opcode{OpStloc0, OpStloc1, OpStloc2, OpStloc3}[index]})
	case index <= 255:
		return e.push(&Instruction{Opcode: OpStlocS, Kind: OperandVariable, VarOperand: index})
	default:
		return e.push(&Instruction{Opcode: OpStloc, Kind: OperandVariable, VarOperand: index})
	}
}

// LoadField appends an instance-field load.
func (e *Emitter) LoadField(field MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpLdfld, Kind: OperandMember, MemberOperand: field})
}

// StoreField appends an instance-field store.
func (e *Emitter) StoreField(field MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpStfld, Kind: OperandMember, MemberOperand: field})
}

// LoadStaticField appends a static-field load.
func (e *Emitter) LoadStaticField(field MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpLdsfld, Kind: OperandMember, MemberOperand: field})
}

// StoreStaticField appends a static-field store.
func (e *Emitter) StoreStaticField(field MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpStsfld, Kind: OperandMember, MemberOperand: field})
}

// Call appends a direct (non-virtual) method call.
func (e *Emitter) Call(method MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpCall, Kind: OperandMember, MemberOperand: method})
}

// CallVirtual appends a virtual method call.
func (e *Emitter) CallVirtual(method MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpCallvirt, Kind: OperandMember, MemberOperand: method})
}

// NewObject appends a constructor call.
func (e *Emitter) NewObject(ctor MemberID) *Emitter {
	return e.push(&Instruction{Opcode: OpNewobj, Kind: OperandMember, MemberOperand: ctor})
}

// Add, Sub, Mul, Div append the four basic arithmetic operations.
func (e *Emitter) Add() *Emitter { return e.push(&Instruction{Opcode: OpAdd}) }
func (e *Emitter) Sub() *Emitter { return e.push(&Instruction{Opcode: OpSub}) }
func (e *Emitter) Mul() *Emitter { return e.push(&Instruction{Opcode: OpMul}) }
func (e *Emitter) Div() *Emitter { return e.push(&Instruction{Opcode: OpDiv}) }

// CompareEqual, CompareGreater, CompareLess append the three comparison ops.
func (e *Emitter) CompareEqual() *Emitter  { return e.push(&Instruction{Opcode: OpCeq}) }
func (e *Emitter) CompareGreater() *Emitter { return e.push(&Instruction{Opcode: OpCgt}) }
func (e *Emitter) CompareLess() *Emitter   { return e.push(&Instruction{Opcode: OpClt}) }

// Dup appends a stack duplicate.
func (e *Emitter) Dup() *Emitter { return e.push(&Instruction{Opcode: OpDup}) }

// Pop appends a stack pop.
func (e *Emitter) Pop() *Emitter { return e.push(&Instruction{Opcode: OpPop}) }

// Return appends a return; it is an explicit terminator, never implied.
func (e *Emitter) Return() *Emitter { return e.push(&Instruction{Opcode: OpRet}) }

// Branch appends an unconditional branch to target, an Instruction owned by
// the same body. The short-vs-long branch encoding is chosen later, during
// the writer's layout pass, not here.
func (e *Emitter) Branch(target *Instruction) *Emitter {
	return e.push(&Instruction{Opcode: OpBr, Kind: OperandBranchTarget, BranchTarget: target})
}

// BranchIfTrue appends a conditional branch taken when the top of stack is
// true/non-null/non-zero.
func (e *Emitter) BranchIfTrue(target *Instruction) *Emitter {
	return e.push(&Instruction{Opcode: OpBrtrue, Kind: OperandBranchTarget, BranchTarget: target})
}

// BranchIfFalse appends a conditional branch taken when the top of stack is
// false/null/zero.
func (e *Emitter) BranchIfFalse(target *Instruction) *Emitter {
	return e.push(&Instruction{Opcode: OpBrfalse, Kind: OperandBranchTarget, BranchTarget: target})
}

// ApplyTo replaces body's instructions wholesale and clears its locals and
// exception handlers, per §4.8's apply_to contract, then runs the layout
// pass so Offset and branch encoding are current before anyone reads them.
func (e *Emitter) ApplyTo(body *MethodBody) {
	body.Instructions = e.Instructions()
	body.LocalCount = 0
	body.Handlers = nil
	LayoutBody(body)
}

// InsertBefore splices e's instructions into body immediately before
// target, then re-runs layout. Fails with CodeAnchorNotFound if target is
// not an instruction of body.
func (e *Emitter) InsertBefore(body *MethodBody, target *Instruction) error {
	idx, err := indexOfInstruction(body, target)
	if err != nil {
		return err
	}
	body.Instructions = spliceInstructions(body.Instructions, idx, e.Instructions())
	LayoutBody(body)
	return nil
}

// InsertAfter splices e's instructions into body immediately after target,
// then re-runs layout. Fails with CodeAnchorNotFound if target is not an
// instruction of body.
func (e *Emitter) InsertAfter(body *MethodBody, target *Instruction) error {
	idx, err := indexOfInstruction(body, target)
	if err != nil {
		return err
	}
	body.Instructions = spliceInstructions(body.Instructions, idx+1, e.Instructions())
	LayoutBody(body)
	return nil
}

func indexOfInstruction(body *MethodBody, target *Instruction) (int, error) {
	for i, in := range body.Instructions {
		if in == target {
			return i, nil
		}
	}
	return -1, NewError(CodeAnchorNotFound, "anchor instruction not present in body")
}

func spliceInstructions(into []*Instruction, at int, seq []*Instruction) []*Instruction {
	out := make([]*Instruction, 0, len(into)+len(seq))
	out = append(out, into[:at]...)
	out = append(out, seq...)
	out = append(out, into[at:]...)
	return out
}

// cloneInstruction returns a copy of in with a fresh identity but identical
// operand data, the behavior §4.9 pre-return injection requires: clones
// share member/type/string references but allocate fresh instruction
// handles so later edits do not alias.
func cloneInstruction(in *Instruction) *Instruction {
	c := *in
	return &c
}
