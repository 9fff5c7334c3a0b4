// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/saferwall/clrforge/log"
)

// Rewriter takes ownership of one in-memory Assembly model and exposes the
// mutation surface spec §4.11 names. Every successful mutation appends a
// journal entry; a failed mutation leaves the model untouched and produces
// no entry — validation precedes commit throughout.
type Rewriter struct {
	asm             *Assembly
	journal         []JournalEntry
	logger          *log.Helper
	mvidRegenerated bool
}

// NewRewriter takes ownership of asm. The caller must not mutate asm
// directly afterward; all changes should go through the Rewriter so the
// journal stays accurate. It also snapshots every base-range type's and
// method's current Attrs, so a later SetTypeAttrs/SetMethodAttrs call on a
// base-range member can be told apart from a no-op when the writer builds
// the rewrite trailer.
func NewRewriter(asm *Assembly, logger *log.Helper) *Rewriter {
	if logger == nil {
		logger = log.NewHelper(nil)
	}
	if asm.baseTypeAttrs == nil {
		asm.baseTypeAttrs = make([]uint32, asm.baseTypeCount)
		for i := 0; i < asm.baseTypeCount && i < len(asm.Types); i++ {
			asm.baseTypeAttrs[i] = asm.Types[i].Attrs
		}
	}
	if asm.baseMethodAttrs == nil {
		asm.baseMethodAttrs = make([]uint32, asm.baseMethodCount)
		for i := 0; i < asm.baseMethodCount && i < len(asm.Methods); i++ {
			asm.baseMethodAttrs[i] = asm.Methods[i].Attrs
		}
	}
	return &Rewriter{asm: asm, logger: logger}
}

func (r *Rewriter) record(kind JournalEntryKind, subject string) {
	r.journal = append(r.journal, JournalEntry{Kind: kind, Subject: subject, Timestamp: nowUnix()})
}

// AddType appends t to the assembly's type arena and returns its new
// MemberID.
func (r *Rewriter) AddType(t DetachedType) MemberID {
	idx := len(r.asm.Types)
	r.asm.Types = append(r.asm.Types, TypeDefModel{
		Token:     typeDefToken(idx),
		Name:      t.Name,
		Namespace: t.Namespace,
		Attrs:     t.Attrs,
	})
	id := r.asm.TypeID(idx)
	r.record(JournalTypeAdded, id.Encode())
	return id
}

// RemoveType clears type idx's name and attributes in place, leaving a
// tombstone at its arena index rather than shifting every later index
// (which would invalidate every already-issued MemberID for this
// assembly). A consumer's referential-integrity check is a separable
// verifier, per §4.11; this method only performs the removal itself.
func (r *Rewriter) RemoveType(idx int) error {
	if idx < 0 || idx >= len(r.asm.Types) {
		return NewError(CodeTypeNotFound, "type index out of range")
	}
	id := r.asm.TypeID(idx)
	r.asm.Types[idx] = TypeDefModel{Token: r.asm.Types[idx].Token}
	r.record(JournalTypeRemoved, id.Encode())
	return nil
}

// AddMethod appends m to declaringType's method list and returns its new
// MemberID.
func (r *Rewriter) AddMethod(declaringType int, m DetachedMethod) (MemberID, error) {
	if declaringType < 0 || declaringType >= len(r.asm.Types) {
		return MemberID{}, NewError(CodeTypeNotFound, "declaring type index out of range")
	}
	idx := len(r.asm.Methods)
	sig := MethodSig{Return: m.ReturnType, Name: m.Name, Params: m.Params}
	r.asm.Methods = append(r.asm.Methods, MethodModel{
		Token:         methodDefToken(idx),
		Name:          m.Name,
		DeclaringType: declaringType,
		Attrs:         m.Attrs,
		Signature:     sig,
		SignatureHash: Hash(sig.Render()),
	})
	r.asm.Types[declaringType].Methods = append(r.asm.Types[declaringType].Methods, idx)
	r.asm.signatureIndex = nil // stale after adding a method; rebuilt lazily
	id := r.asm.MethodID(idx)
	r.record(JournalMethodAdded, id.Encode())
	return id, nil
}

// RemoveMethod clears method idx's body and name, leaving a tombstone at
// its arena index for the same reason RemoveType does.
func (r *Rewriter) RemoveMethod(idx int) error {
	if idx < 0 || idx >= len(r.asm.Methods) {
		return NewError(CodeMethodNotFound, "method index out of range")
	}
	id := r.asm.MethodID(idx)
	r.asm.Methods[idx] = MethodModel{Token: r.asm.Methods[idx].Token, DeclaringType: r.asm.Methods[idx].DeclaringType}
	r.asm.signatureIndex = nil
	r.record(JournalMethodRemoved, id.Encode())
	return nil
}

// AddField appends f to declaringType's field list and returns its new
// MemberID.
func (r *Rewriter) AddField(declaringType int, f DetachedField) (MemberID, error) {
	if declaringType < 0 || declaringType >= len(r.asm.Types) {
		return MemberID{}, NewError(CodeTypeNotFound, "declaring type index out of range")
	}
	idx := len(r.asm.Fields)
	r.asm.Fields = append(r.asm.Fields, FieldModel{
		Token:         fieldToken(idx),
		Name:          f.Name,
		DeclaringType: declaringType,
		Attrs:         uint32(f.Attrs),
		Type:          f.Type,
	})
	r.asm.Types[declaringType].Fields = append(r.asm.Types[declaringType].Fields, idx)
	id := r.asm.FieldID(idx)
	r.record(JournalFieldAdded, id.Encode())
	return id, nil
}

// SetTypeAttrs mutates type idx's attribute bitmask.
func (r *Rewriter) SetTypeAttrs(idx int, attrs uint32) error {
	if idx < 0 || idx >= len(r.asm.Types) {
		return NewError(CodeTypeNotFound, "type index out of range")
	}
	r.asm.Types[idx].Attrs = attrs
	r.record(JournalTypeModified, r.asm.TypeID(idx).Encode())
	return nil
}

// SetMethodAttrs mutates method idx's attribute bitmask.
func (r *Rewriter) SetMethodAttrs(idx int, attrs uint32) error {
	if idx < 0 || idx >= len(r.asm.Methods) {
		return NewError(CodeMethodNotFound, "method index out of range")
	}
	r.asm.Methods[idx].Attrs = attrs
	r.record(JournalMethodModified, r.asm.MethodID(idx).Encode())
	return nil
}

// RenameMethod changes method idx's name. The signature (and therefore its
// hash) is rebuilt to match, since the canonical signature embeds the name.
func (r *Rewriter) RenameMethod(idx int, newName string) error {
	if idx < 0 || idx >= len(r.asm.Methods) {
		return NewError(CodeMethodNotFound, "method index out of range")
	}
	m := &r.asm.Methods[idx]
	m.Name = newName
	m.Signature.Name = newName
	m.SignatureHash = Hash(m.Signature.Render())
	r.asm.signatureIndex = nil
	r.record(JournalMethodRenamed, r.asm.MethodID(idx).Encode())
	return nil
}

// Save serializes the model to path. The first save after any mutation
// mints the assembly a fresh MVID, so a rewritten copy never collides
// with its unmodified source under the same key in an Instance Registry.
func (r *Rewriter) Save(path string) error {
	r.regenerateMVIDIfMutated()
	return writeAssembly(r.asm, path)
}

// SaveToMemory serializes the model to a byte buffer, with the same
// fresh-MVID-on-first-mutated-save behavior as Save.
func (r *Rewriter) SaveToMemory() ([]byte, error) {
	r.regenerateMVIDIfMutated()
	return encodeAssembly(r.asm)
}

func (r *Rewriter) regenerateMVIDIfMutated() {
	if r.mvidRegenerated || len(r.journal) == 0 {
		return
	}
	r.asm.MVID = uuid.New()
	r.mvidRegenerated = true
}

// History returns the full, time-ordered modification journal.
func (r *Rewriter) History() []JournalEntry {
	return append([]JournalEntry(nil), r.journal...)
}

// LastN returns the n most recent journal entries, built on the Slicer so
// a caller never re-derives the offset arithmetic itself.
func (r *Rewriter) LastN(n int) []JournalEntry {
	if n <= 0 {
		return nil
	}
	start := len(r.journal) - n
	if start < 0 {
		start = 0
	}
	items, _ := Slice(r.journal, start, n)
	return items
}

// Verify runs the minimal separable structural self-check spec §4.11
// anticipates but leaves out of scope for the mutation path itself: it
// never blocks a mutation, only reports findings a caller may act on.
func (r *Rewriter) Verify() []string {
	var findings []string
	for i, t := range r.asm.Types {
		for _, mi := range t.Methods {
			if mi < 0 || mi >= len(r.asm.Methods) {
				findings = append(findings, "type "+t.Name+" references out-of-range method index")
				continue
			}
			if r.asm.Methods[mi].DeclaringType != i {
				findings = append(findings, "method "+r.asm.Methods[mi].Name+" declaring-type link does not match its owning type's back-reference")
			}
		}
	}
	for i, m := range r.asm.Methods {
		if m.Body == nil {
			continue
		}
		for _, in := range m.Body.Instructions {
			if in.Kind == OperandBranchTarget && in.BranchTarget != nil {
				if !bodyOwnsInstruction(m.Body, in.BranchTarget) {
					findings = append(findings, "method "+m.Name+" (index "+strconv.Itoa(i)+") has a branch target not owned by its own body")
				}
			}
		}
	}
	return findings
}

func bodyOwnsInstruction(body *MethodBody, target *Instruction) bool {
	for _, in := range body.Instructions {
		if in == target {
			return true
		}
	}
	return false
}

