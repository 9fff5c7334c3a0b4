// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"errors"
	"testing"
)

func TestNewErrorHasNoCause(t *testing.T) {
	err := NewError(CodeTypeNotFound, "no such type")
	if err.Cause != nil {
		t.Errorf("NewError() Cause = %v, want nil", err.Cause)
	}
	want := "TYPE_NOT_FOUND: no such type"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapErrorFormatsCause(t *testing.T) {
	cause := errors.New("file not found")
	err := WrapError(CodeAssemblyNotFound, "could not open assembly", cause)
	want := "ASSEMBLY_NOT_FOUND: could not open assembly: file not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(CodeUnknown, "wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause via Unwrap()")
	}

	plain := NewError(CodeUnknown, "no cause here")
	if plain.Unwrap() != nil {
		t.Error("Unwrap() on an Error with no Cause should return nil")
	}
}
