// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func TestEmitterLoadIntEncodingChoice(t *testing.T) {
	tests := []struct {
		v    int64
		want Opcode
	}{
		{-1, OpLdcI4M1},
		{0, OpLdcI40},
		{8, OpLdcI48},
		{100, OpLdcI4S},
		{-128, OpLdcI4S},
		{1000, OpLdcI4},
		{-1000, OpLdcI4},
	}
	for _, tt := range tests {
		e := NewEmitter().LoadInt(tt.v)
		got := e.Instructions()[0].Opcode
		if got != tt.want {
			t.Errorf("LoadInt(%d) opcode = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEmitterChainingBuildsSequence(t *testing.T) {
	e := NewEmitter().LoadInt(1).LoadInt(2).Add().Return()
	instrs := e.Instructions()
	if len(instrs) != 4 {
		t.Fatalf("Instructions() length = %d, want 4", len(instrs))
	}
	wantOps := []Opcode{OpLdcI41, OpLdcI42, OpAdd, OpRet}
	for i, want := range wantOps {
		if instrs[i].Opcode != want {
			t.Errorf("instrs[%d].Opcode = %v, want %v", i, instrs[i].Opcode, want)
		}
	}
}

func TestEmitterApplyToResetsLocalsAndHandlers(t *testing.T) {
	body := &MethodBody{
		LocalCount: 3,
		Handlers:   []ExceptionHandler{{TryStart: 0, TryEnd: 1}},
	}
	NewEmitter().Nop().Return().ApplyTo(body)

	if body.LocalCount != 0 {
		t.Errorf("ApplyTo() LocalCount = %d, want 0", body.LocalCount)
	}
	if body.Handlers != nil {
		t.Errorf("ApplyTo() Handlers = %v, want nil", body.Handlers)
	}
	if len(body.Instructions) != 2 {
		t.Errorf("ApplyTo() Instructions length = %d, want 2", len(body.Instructions))
	}
}

func TestEmitterInsertBeforeAndAfter(t *testing.T) {
	body := &MethodBody{}
	NewEmitter().Nop().Return().ApplyTo(body)
	anchor := body.Instructions[1] // the ret

	if err := NewEmitter().Dup().InsertBefore(body, anchor); err != nil {
		t.Fatalf("InsertBefore() failed: %v", err)
	}
	if len(body.Instructions) != 3 || body.Instructions[1].Opcode != OpDup {
		t.Fatalf("InsertBefore() did not splice at the right index: %+v", body.Instructions)
	}

	if err := NewEmitter().Pop().InsertAfter(body, anchor); err != nil {
		t.Fatalf("InsertAfter() failed: %v", err)
	}
	if len(body.Instructions) != 4 || body.Instructions[3].Opcode != OpPop {
		t.Fatalf("InsertAfter() did not splice at the right index: %+v", body.Instructions)
	}
}

func TestEmitterInsertBeforeUnknownAnchorFails(t *testing.T) {
	body := &MethodBody{}
	NewEmitter().Nop().ApplyTo(body)
	foreign := &Instruction{Opcode: OpNop}

	err := NewEmitter().Dup().InsertBefore(body, foreign)
	if err == nil {
		t.Fatal("InsertBefore() with a foreign anchor should fail")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Code != CodeAnchorNotFound {
		t.Errorf("InsertBefore() error = %v, want CodeAnchorNotFound", err)
	}
}

func TestEmitterLoadArgEncodingChoice(t *testing.T) {
	if got := NewEmitter().LoadArg(0).Instructions()[0].Opcode; got != OpLdarg0 {
		t.Errorf("LoadArg(0) opcode = %v, want OpLdarg0", got)
	}
	if got := NewEmitter().LoadArg(10).Instructions()[0].Opcode; got != OpLdargS {
		t.Errorf("LoadArg(10) opcode = %v, want OpLdargS", got)
	}
	if got := NewEmitter().LoadArg(300).Instructions()[0].Opcode; got != OpLdarg {
		t.Errorf("LoadArg(300) opcode = %v, want OpLdarg", got)
	}
}
