// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"testing"

	"github.com/google/uuid"
)

func TestMemberIDEncodeDecodeRoundTrip(t *testing.T) {
	mvid := uuid.New()
	id := MemberID{MVID: mvid, Token: 0x06000123, Kind: KindMethod}

	encoded := id.Encode()
	decoded, err := DecodeMemberID(encoded)
	if err != nil {
		t.Fatalf("DecodeMemberID(%q) failed: %v", encoded, err)
	}
	if decoded != id {
		t.Errorf("round trip = %+v, want %+v", decoded, id)
	}
}

func TestDecodeMemberIDRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", ReasonEmptyInput},
		{"wrong part count", "onlyonepart", ReasonWrongPartCount},
		{"uppercase mvid", "AABBCCDDAABBCCDDAABBCCDDAABBCCDD:06000001:T", ReasonBadMVID},
		{"short mvid", "abcd:06000001:T", ReasonBadMVID},
		{"lowercase token", "aabbccddaabbccddaabbccddaabbccdd:0600000a:T", ReasonBadToken},
		{"short token", "aabbccddaabbccddaabbccddaabbccdd:0001:T", ReasonBadToken},
		{"unknown kind", "aabbccddaabbccddaabbccddaabbccdd:06000001:X", ReasonUnknownKind},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeMemberID(c.input)
			de, ok := err.(*DecodeError)
			if !ok {
				t.Fatalf("DecodeMemberID(%q) err = %v, want *DecodeError", c.input, err)
			}
			if de.Reason != c.reason {
				t.Errorf("DecodeMemberID(%q) reason = %q, want %q", c.input, de.Reason, c.reason)
			}
		})
	}
}

func TestKindStringUnknownValue(t *testing.T) {
	if got := Kind('Z').String(); got != "?" {
		t.Errorf("Kind('Z').String() = %q, want ?", got)
	}
	if got := KindType.String(); got != "T" {
		t.Errorf("KindType.String() = %q, want T", got)
	}
}

func TestLocationIDEncodeDecodeRoundTrip(t *testing.T) {
	loc := LocationID{
		Member: MemberID{MVID: uuid.New(), Token: 0x06000abc, Kind: KindMethod},
		Offset: 0x001a,
	}
	encoded := loc.Encode()
	decoded, err := DecodeLocationID(encoded)
	if err != nil {
		t.Fatalf("DecodeLocationID(%q) failed: %v", encoded, err)
	}
	if decoded != loc {
		t.Errorf("round trip = %+v, want %+v", decoded, loc)
	}
}

func TestDecodeLocationIDRejectsMissingAt(t *testing.T) {
	_, err := DecodeLocationID("aabbccddaabbccddaabbccddaabbccdd:06000001:T")
	de, ok := err.(*DecodeError)
	if !ok || de.Reason != ReasonBadOffset {
		t.Errorf("DecodeLocationID() without @ err = %v, want ReasonBadOffset", err)
	}
}

func TestDecodeLocationIDPropagatesMemberError(t *testing.T) {
	_, err := DecodeLocationID("bad-member@001A")
	if _, ok := err.(*DecodeError); !ok {
		t.Fatalf("DecodeLocationID() with bad member = %v, want *DecodeError", err)
	}
}

func TestIsValid(t *testing.T) {
	id := MemberID{MVID: uuid.New(), Token: 1, Kind: KindField}
	if !IsValid(id.Encode()) {
		t.Error("IsValid() on a freshly encoded id should be true")
	}
	if IsValid("garbage") {
		t.Error("IsValid() on garbage should be false")
	}
}

func TestBelongsToAssembly(t *testing.T) {
	mvid := uuid.New()
	id := MemberID{MVID: mvid, Token: 1, Kind: KindType}
	if !BelongsToAssembly(id, mvid) {
		t.Error("BelongsToAssembly() should match its own MVID")
	}
	if BelongsToAssembly(id, uuid.New()) {
		t.Error("BelongsToAssembly() should not match a different MVID")
	}
}
