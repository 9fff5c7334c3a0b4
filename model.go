// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"github.com/google/uuid"
)

// MemberKind tags which arena a Member's Index refers into. Modeled as a
// tagged sum rather than an inheritance hierarchy: each variant exposes
// only the metadata it actually has, and this tag is exactly the
// identifier codec's Kind suffix.
type MemberKind int

const (
	MemberTypeDef MemberKind = iota
	MemberMethod
	MemberField
	MemberProperty
	MemberEvent
)

func (k MemberKind) toKind() Kind {
	switch k {
	case MemberTypeDef:
		return KindType
	case MemberMethod:
		return KindMethod
	case MemberField:
		return KindField
	case MemberProperty:
		return KindProperty
	case MemberEvent:
		return KindEvent
	}
	return 0
}

// TypeDefModel is one entry in the module's type arena. DeclaringType is an
// arena index (-1 if top-level), not a pointer: ownership is stored as
// indices because that is what the file format stores anyway, and it
// sidesteps cyclic ownership between a type and its members.
type TypeDefModel struct {
	Token     uint32
	Name      string
	Namespace string
	Attrs     uint32

	Methods    []int // indices into Assembly.Methods
	Fields     []int // indices into Assembly.Fields
	Properties []int // indices into Assembly.Properties
	Events     []int // indices into Assembly.Events

	SignatureHash string
}

// MethodModel is one entry in the module's method arena.
type MethodModel struct {
	Token         uint32
	Name          string
	DeclaringType int
	Attrs         uint32
	Signature     MethodSig
	SignatureHash string

	Body *MethodBody
}

// FieldModel is one entry in the module's field arena.
type FieldModel struct {
	Token         uint32
	Name          string
	DeclaringType int
	Attrs         uint32
	Type          TypeSig
}

// PropertyModel is one entry in the module's property arena.
type PropertyModel struct {
	Token         uint32
	Name          string
	DeclaringType int
	Getter        int // method arena index, -1 if absent
	Setter        int // method arena index, -1 if absent
}

// EventModel is one entry in the module's event arena.
type EventModel struct {
	Token         uint32
	Name          string
	DeclaringType int
	EventType     TypeSig
}

// AssemblyRefModel records a symbolic dependency named by this assembly;
// the Resolver turns these into loaded Assembly values on demand.
type AssemblyRefModel struct {
	Name    string
	Version string
	Token   uint32
}

// MethodBody owns a method's instructions, local-variable slots, and
// exception-handler table.
type MethodBody struct {
	Instructions []*Instruction
	LocalCount   int
	Handlers     []ExceptionHandler
}

// ExceptionHandler is one entry in a method body's exception-handler
// table, addressed by instruction index within the same body.
type ExceptionHandler struct {
	TryStart, TryEnd     int
	HandlerStart, HandlerEnd int
	CatchType            *TypeSig
}

// OperandKind discriminates Instruction.Operand's shape.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandInt8
	OperandUInt8
	OperandInt16
	OperandInt32
	OperandInt64
	OperandFloat32
	OperandFloat64
	OperandString
	OperandMember   // member reference (field/method/type), by MemberID
	OperandType     // type reference, as TypeSig
	OperandVariable // local or argument index
	OperandBranchTarget
)

// Instruction is one IL opcode plus a discriminated operand. BranchTarget
// holds another *Instruction owned by the same body, resolved late:
// LayoutBody (layout.go) recomputes byte offsets and picks short vs. long
// branch encoding only after every instruction in the body is known.
type Instruction struct {
	Opcode Opcode
	Offset uint32 // byte offset within the body; valid only after layout

	Kind          OperandKind
	IntOperand    int64
	FloatOperand  float64
	StringOperand string
	MemberOperand MemberID
	TypeOperand   TypeSig
	VarOperand    int
	BranchTarget  *Instruction
}

// JournalEntryKind enumerates the modification kinds the Rewriter's
// journal records.
type JournalEntryKind string

// The closed set of journal entry kinds.
const (
	JournalTypeAdded      JournalEntryKind = "type-added"
	JournalTypeRemoved    JournalEntryKind = "type-removed"
	JournalTypeModified   JournalEntryKind = "type-modified"
	JournalMethodAdded    JournalEntryKind = "method-added"
	JournalMethodRemoved  JournalEntryKind = "method-removed"
	JournalMethodModified JournalEntryKind = "method-modified"
	JournalMethodRenamed  JournalEntryKind = "method-renamed"
	JournalFieldAdded     JournalEntryKind = "field-added"
	JournalFieldRemoved   JournalEntryKind = "field-removed"
	JournalPropModified   JournalEntryKind = "property-modified"
)

// JournalEntry is one time-ordered record the Rewriter appends on every
// successful mutation. Subject is a human-readable description (e.g. a
// member identifier or name); Timestamp is Unix seconds.
type JournalEntry struct {
	Kind      JournalEntryKind
	Subject   string
	Timestamp int64
}

// Assembly is the parsed contents of one image: a main module owning
// ordered arenas of type/method/field/property/event definitions, plus
// embedded resources and a version triple. Ownership is strictly
// hierarchical (module owns types; a type owns its members; a method owns
// its body) but stored as arena indices, not pointers.
type Assembly struct {
	MVID        uuid.UUID
	Name        string
	FullName    string
	Version     [4]uint16 // major, minor, build, revision
	TFM         string
	Image       *Image

	Types      []TypeDefModel
	Methods    []MethodModel
	Fields     []FieldModel
	Properties []PropertyModel
	Events     []EventModel
	References []AssemblyRefModel

	Resources map[string][]byte

	signatureIndex map[string]MemberID // built lazily by RemapBySignatureHash

	// baseTypeCount, baseMethodCount, and baseFieldCount record each
	// arena's length immediately after the initial Loader pass, before any
	// Rewriter mutation. The writer uses them to tell "this arena entry
	// came from the image on disk" from "the Rewriter added this" without
	// needing a separate snapshot of the original model.
	baseTypeCount   int
	baseMethodCount int
	baseFieldCount  int

	// baseTypeAttrs and baseMethodAttrs snapshot the Attrs bitmask of every
	// base-range type and method as of NewRewriter, one uint32 per member.
	// A base-range slot is never added or removed (those go through the
	// Name=="" tombstone check instead), so the only in-place edit the
	// writer needs to detect there is an attribute re-stamp, and a single
	// uint32 per member is cheap enough to keep around for the life of the
	// Rewriter.
	baseTypeAttrs   []uint32
	baseMethodAttrs []uint32
}

// TypeCount returns the number of live (non-tombstoned) types in the model.
// A Rewriter-removed type keeps its arena slot so issued MemberIDs stay
// addressable, but an empty Name marks it a tombstone, so it must not count
// toward a visible total — per the reload invariant that a removal must
// show up as a decrease, not a no-op, in the type count.
func (a *Assembly) TypeCount() int {
	n := 0
	for _, t := range a.Types {
		if t.Name != "" {
			n++
		}
	}
	return n
}

// MethodCount returns the number of live (non-tombstoned) methods in the
// model, by the same convention TypeCount uses.
func (a *Assembly) MethodCount() int {
	n := 0
	for _, m := range a.Methods {
		if m.Name != "" {
			n++
		}
	}
	return n
}

// FieldCount returns the number of live (non-tombstoned) fields in the
// model, by the same convention TypeCount uses.
func (a *Assembly) FieldCount() int {
	n := 0
	for _, f := range a.Fields {
		if f.Name != "" {
			n++
		}
	}
	return n
}

// Dependencies returns the symbolic names of this assembly's
// AssemblyRef entries, for the Loader summary.
func (a *Assembly) Dependencies() []string {
	names := make([]string, len(a.References))
	for i, r := range a.References {
		names[i] = r.Name
	}
	return names
}

// memberID builds the external identifier for one arena entry.
func (a *Assembly) memberID(token uint32, kind MemberKind) MemberID {
	return MemberID{MVID: a.MVID, Token: token, Kind: kind.toKind()}
}

// TypeID returns the external identifier of Types[idx].
func (a *Assembly) TypeID(idx int) MemberID { return a.memberID(a.Types[idx].Token, MemberTypeDef) }

// MethodID returns the external identifier of Methods[idx].
func (a *Assembly) MethodID(idx int) MemberID { return a.memberID(a.Methods[idx].Token, MemberMethod) }

// FieldID returns the external identifier of Fields[idx].
func (a *Assembly) FieldID(idx int) MemberID { return a.memberID(a.Fields[idx].Token, MemberField) }

// PropertyID returns the external identifier of Properties[idx].
func (a *Assembly) PropertyID(idx int) MemberID {
	return a.memberID(a.Properties[idx].Token, MemberProperty)
}

// EventID returns the external identifier of Events[idx].
func (a *Assembly) EventID(idx int) MemberID { return a.memberID(a.Events[idx].Token, MemberEvent) }

// Remap re-identifies a member after its raw token no longer resolves
// (typically after a save/reload cycle shifted table rows). It is a
// minimal, explicitly partial policy: it first tries old's token directly
// (cheap, and still correct when nothing shifted ahead of it), and
// otherwise falls back to "not found" rather than guessing — a caller that
// recorded a signature hash at mutation time should call
// RemapBySignatureHash with it instead, which is the precise form this
// fast path approximates.
func (a *Assembly) Remap(old MemberID) (MemberID, bool) {
	if old.MVID != a.MVID {
		return MemberID{}, false
	}
	switch old.Kind {
	case MemberTypeDef.toKind():
		for i := range a.Types {
			if a.Types[i].Token == old.Token {
				return a.TypeID(i), true
			}
		}
	case MemberMethod.toKind():
		for i := range a.Methods {
			if a.Methods[i].Token == old.Token {
				return a.MethodID(i), true
			}
		}
	case MemberField.toKind():
		for i := range a.Fields {
			if a.Fields[i].Token == old.Token {
				return a.FieldID(i), true
			}
		}
	case MemberProperty.toKind():
		for i := range a.Properties {
			if a.Properties[i].Token == old.Token {
				return a.PropertyID(i), true
			}
		}
	case MemberEvent.toKind():
		for i := range a.Events {
			if a.Events[i].Token == old.Token {
				return a.EventID(i), true
			}
		}
	}
	return MemberID{}, false
}

// RemapBySignatureHash looks a method up by its canonical signature hash,
// the stable key across a rewrite that only changes tokens.
func (a *Assembly) RemapBySignatureHash(hash string) (MemberID, bool) {
	if a.signatureIndex == nil {
		a.buildSignatureIndex()
	}
	id, ok := a.signatureIndex[hash]
	return id, ok
}

func (a *Assembly) buildSignatureIndex() {
	a.signatureIndex = make(map[string]MemberID, len(a.Methods))
	for i, m := range a.Methods {
		if m.SignatureHash == "" {
			continue
		}
		a.signatureIndex[m.SignatureHash] = a.MethodID(i)
	}
}
