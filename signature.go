// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// TypeSig is a tagged sum describing a type reference for canonical
// signature rendering. Exactly one of the variant fields is meaningful,
// selected by Kind.
type TypeSig struct {
	Kind TypeSigKind

	// Plain: FullName is the only field used.
	FullName string

	// GenericInstance: FullName plus Args.
	Args []TypeSig

	// Array: Of plus Rank (rank 1 is a vector, written with no commas).
	Of   *TypeSig
	Rank int

	// ByRef, Pointer: Of.

	// Modifier: Of plus ModRequired (true = modreq, false = modopt) and
	// ModName.
	ModRequired bool
	ModName     string
}

// TypeSigKind discriminates TypeSig's variants.
type TypeSigKind int

const (
	SigPlain TypeSigKind = iota
	SigGenericInstance
	SigArray
	SigByRef
	SigPointer
	SigModifier
)

// Plain builds a non-generic named type reference.
func Plain(fullName string) TypeSig { return TypeSig{Kind: SigPlain, FullName: fullName} }

// Render produces the canonical textual encoding of a type reference.
// Recursive cases follow the grammar: generic instance `T<A,B>`; array of
// rank r over E `sig(E)[,,]` with r-1 commas; by-ref `E&`; pointer `E*`;
// modifier `sig(E) mod{req,opt}(ModName)`; plain reference `FullName`.
func (t TypeSig) Render() string {
	switch t.Kind {
	case SigGenericInstance:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.Render()
		}
		return t.FullName + "<" + strings.Join(args, ",") + ">"
	case SigArray:
		commas := strings.Repeat(",", t.Rank-1)
		return t.Of.Render() + "[" + commas + "]"
	case SigByRef:
		return t.Of.Render() + "&"
	case SigPointer:
		return t.Of.Render() + "*"
	case SigModifier:
		kind := "modopt"
		if t.ModRequired {
			kind = "modreq"
		}
		return t.Of.Render() + " " + kind + "(" + t.ModName + ")"
	default:
		return t.FullName
	}
}

// ParamSig is one parameter of a MethodSig: a name and its type. Render
// uses only the type; the name does not appear in the canonical form.
type ParamSig struct {
	Name string
	Type TypeSig
}

// MethodSig describes a method reference for canonical signature
// rendering.
type MethodSig struct {
	Return TypeSig
	Name   string

	// Generics holds instantiated generic method argument signatures; empty
	// for a non-generic or uninstantiated method.
	Generics []TypeSig

	Params []ParamSig
}

// Render produces `sig(return) name [<generics>] (params)`. Instantiated
// generic methods embed their argument signatures; an uninstantiated
// generic method renders no generic list at all, so its form is the same
// as a non-generic method's. Each parameter renders as its type only.
func (m MethodSig) Render() string {
	var b strings.Builder
	b.WriteString(m.Return.Render())
	b.WriteByte(' ')
	b.WriteString(m.Name)

	if len(m.Generics) > 0 {
		b.WriteByte('<')
		for i, g := range m.Generics {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(g.Render())
		}
		b.WriteByte('>')
	}

	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Type.Render())
	}
	b.WriteByte(')')
	return b.String()
}

// Hash returns a 64-bit FNV-1a digest of the signature's UTF-8 bytes,
// rendered as 16 uppercase hex characters. Collision resistance here is
// documentation-level (a short suffix for generic-instantiation identity),
// not cryptographic.
func Hash(signature string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(signature))
	return fmt.Sprintf("%016X", h.Sum64())
}
