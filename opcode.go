// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "fmt"

// Opcode is a single- or two-byte CIL opcode, represented as its ECMA-335
// single-byte value, or 0xFE00|secondByte for the extended (0xFE-prefixed)
// set. The zero value is Nop.
type Opcode uint16

// The opcode families §4.8 requires the emitter to cover. Values match
// ECMA-335 Partition III exactly so a written body round-trips through any
// other CIL reader.
const (
	OpNop Opcode = 0x00

	// Small-integer stack pushes, one dedicated opcode per value -1..8.
	OpLdcI4M1 Opcode = 0x15
	OpLdcI40  Opcode = 0x16
	OpLdcI41  Opcode = 0x17
	OpLdcI42  Opcode = 0x18
	OpLdcI43  Opcode = 0x19
	OpLdcI44  Opcode = 0x1A
	OpLdcI45  Opcode = 0x1B
	OpLdcI46  Opcode = 0x1C
	OpLdcI47  Opcode = 0x1D
	OpLdcI48  Opcode = 0x1E
	OpLdcI4S  Opcode = 0x1F // short form, signed 1-byte operand
	OpLdcI4   Opcode = 0x20 // long form, signed 4-byte operand
	OpLdcI8   Opcode = 0x21
	OpLdcR4   Opcode = 0x22
	OpLdcR8   Opcode = 0x23
	OpLdstr   Opcode = 0x72
	OpLdnull  Opcode = 0x14

	// Argument load/store: dedicated 0..3, short form 4..255, long form above.
	OpLdarg0  Opcode = 0x02
	OpLdarg1  Opcode = 0x03
	OpLdarg2  Opcode = 0x04
	OpLdarg3  Opcode = 0x05
	OpLdargS  Opcode = 0x0E
	OpLdarg   Opcode = 0xFE09
	OpStargS  Opcode = 0x10
	OpStarg   Opcode = 0xFE0B

	// Local load/store: dedicated 0..3, short form 4..255, long form above.
	OpLdloc0  Opcode = 0x06
	OpLdloc1  Opcode = 0x07
	OpLdloc2  Opcode = 0x08
	OpLdloc3  Opcode = 0x09
	OpLdlocS  Opcode = 0x11
	OpLdloc   Opcode = 0xFE0C
	OpStloc0  Opcode = 0x0A
	OpStloc1  Opcode = 0x0B
	OpStloc2  Opcode = 0x0C
	OpStloc3  Opcode = 0x0D
	OpStlocS  Opcode = 0x13
	OpStloc   Opcode = 0xFE0E

	// Field and static-field access.
	OpLdfld   Opcode = 0x7B
	OpStfld   Opcode = 0x7D
	OpLdsfld  Opcode = 0x7E
	OpStsfld  Opcode = 0x80

	// Calls.
	OpCall       Opcode = 0x28
	OpCallvirt   Opcode = 0x6F
	OpNewobj     Opcode = 0x73

	// Arithmetic.
	OpAdd Opcode = 0x58
	OpSub Opcode = 0x59
	OpMul Opcode = 0x5A
	OpDiv Opcode = 0x5B

	// Comparison.
	OpCeq Opcode = 0xFE01
	OpCgt Opcode = 0xFE02
	OpClt Opcode = 0xFE04

	// Stack shuffling.
	OpDup Opcode = 0x25
	OpPop Opcode = 0x26

	// Return and branches.
	OpRet    Opcode = 0x2A
	OpBr     Opcode = 0x38
	OpBrS    Opcode = 0x2B
	OpBrtrue Opcode = 0x3A
	OpBrfalse Opcode = 0x39
)

// opcodeNames backs Opcode.String.
var opcodeNames = map[Opcode]string{
	OpNop: "nop",

	OpLdcI4M1: "ldc.i4.m1", OpLdcI40: "ldc.i4.0", OpLdcI41: "ldc.i4.1",
	OpLdcI42: "ldc.i4.2", OpLdcI43: "ldc.i4.3", OpLdcI44: "ldc.i4.4",
	OpLdcI45: "ldc.i4.5", OpLdcI46: "ldc.i4.6", OpLdcI47: "ldc.i4.7",
	OpLdcI48: "ldc.i4.8", OpLdcI4S: "ldc.i4.s", OpLdcI4: "ldc.i4",
	OpLdcI8: "ldc.i8", OpLdcR4: "ldc.r4", OpLdcR8: "ldc.r8",
	OpLdstr: "ldstr", OpLdnull: "ldnull",

	OpLdarg0: "ldarg.0", OpLdarg1: "ldarg.1", OpLdarg2: "ldarg.2",
	OpLdarg3: "ldarg.3", OpLdargS: "ldarg.s", OpLdarg: "ldarg",
	OpStargS: "starg.s", OpStarg: "starg",

	OpLdloc0: "ldloc.0", OpLdloc1: "ldloc.1", OpLdloc2: "ldloc.2",
	OpLdloc3: "ldloc.3", OpLdlocS: "ldloc.s", OpLdloc: "ldloc",
	OpStloc0: "stloc.0", OpStloc1: "stloc.1", OpStloc2: "stloc.2",
	OpStloc3: "stloc.3", OpStlocS: "stloc.s", OpStloc: "stloc",

	OpLdfld: "ldfld", OpStfld: "stfld", OpLdsfld: "ldsfld", OpStsfld: "stsfld",

	OpCall: "call", OpCallvirt: "callvirt", OpNewobj: "newobj",

	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",

	OpCeq: "ceq", OpCgt: "cgt", OpClt: "clt",

	OpDup: "dup", OpPop: "pop",

	OpRet: "ret", OpBr: "br", OpBrS: "br.s",
	OpBrtrue: "brtrue", OpBrfalse: "brfalse",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%04X)", uint16(op))
}

// IsTwoByte reports whether op is encoded with the 0xFE escape prefix.
func (op Opcode) IsTwoByte() bool { return op > 0xFF }

// Size returns the byte length of op's opcode field alone (1 or 2), not
// counting its operand.
func (op Opcode) Size() int {
	if op.IsTwoByte() {
		return 2
	}
	return 1
}
