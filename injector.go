// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

// Injector applies the four code-injection primitives over a MethodBody.
// It owns no state of its own; every method takes the body it mutates.
type Injector struct{}

// NewInjector builds an Injector.
func NewInjector() *Injector { return &Injector{} }

// InjectEntry inserts seq before the body's first instruction. If the body
// is empty, seq becomes the body. Every injector primitive delegates to the
// Emitter's layout pass afterward, per §4.9, so Offset and branch encoding
// stay current for whatever is injected (or inserted) next.
func (*Injector) InjectEntry(body *MethodBody, seq []*Instruction) {
	body.Instructions = append(append([]*Instruction(nil), seq...), body.Instructions...)
	LayoutBody(body)
}

// InjectPreReturn clones seq (operand-preserving, fresh instruction
// identities) and inserts one clone immediately before every return
// instruction in the body.
func (*Injector) InjectPreReturn(body *MethodBody, seq []*Instruction) {
	out := make([]*Instruction, 0, len(body.Instructions)+len(seq))
	for _, in := range body.Instructions {
		if in.Opcode == OpRet {
			for _, s := range seq {
				out = append(out, cloneInstruction(s))
			}
		}
		out = append(out, in)
	}
	body.Instructions = out
	LayoutBody(body)
}

// InjectAtOffset finds the instruction whose byte offset equals offset and
// inserts seq before it. Fails with CodeAnchorNotFound if no instruction
// starts at that exact offset — implementations must not round to the
// nearest instruction. Matching is against Offset as last computed by
// LayoutBody, so a body must have gone through the layout pass at least
// once (every Emitter/Injector mutation already runs it) before this can
// find anything but offset 0.
func (*Injector) InjectAtOffset(body *MethodBody, offset uint32, seq []*Instruction) error {
	for i, in := range body.Instructions {
		if in.Offset == offset {
			body.Instructions = spliceInstructions(body.Instructions, i, seq)
			LayoutBody(body)
			return nil
		}
	}
	return NewError(CodeAnchorNotFound, "no instruction starts at the given offset")
}

// ReplaceBody clears instructions, locals, and exception handlers, then
// appends seq.
func (*Injector) ReplaceBody(body *MethodBody, seq []*Instruction) {
	body.Instructions = append([]*Instruction(nil), seq...)
	body.LocalCount = 0
	body.Handlers = nil
	LayoutBody(body)
}

// Wrap layers entry injection then pre-return injection, in that order —
// the convenience §4.9 names for "run this before the method and before
// every return from it". Both steps already re-run layout, so Wrap itself
// doesn't need to.
func (inj *Injector) Wrap(body *MethodBody, entry, preReturn []*Instruction) {
	inj.InjectEntry(body, entry)
	inj.InjectPreReturn(body, preReturn)
}
