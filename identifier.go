// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind tags which metadata table an external member identifier's token
// indexes into. It is the load-bearing suffix that keeps two identifiers
// with the same MVID and token from colliding across member kinds.
type Kind byte

// The five member kinds the identifier grammar recognizes.
const (
	KindType     Kind = 'T'
	KindMethod   Kind = 'M'
	KindField    Kind = 'F'
	KindProperty Kind = 'P'
	KindEvent    Kind = 'E'
)

// String renders the kind as its single-character code, or "?" for an
// out-of-vocabulary value.
func (k Kind) String() string {
	switch k {
	case KindType, KindMethod, KindField, KindProperty, KindEvent:
		return string(rune(k))
	}
	return "?"
}

func (k Kind) valid() bool {
	switch k {
	case KindType, KindMethod, KindField, KindProperty, KindEvent:
		return true
	}
	return false
}

// MemberID is the decoded form of an external member identifier: an MVID
// identifying the owning module, a metadata token, and a kind tag.
type MemberID struct {
	MVID  uuid.UUID
	Token uint32
	Kind  Kind
}

// LocationID is a member identifier plus a byte offset into that member's
// IL stream, for addressing a specific instruction inside a method body.
type LocationID struct {
	Member MemberID
	Offset uint16
}

// DecodeError reports why DecodeMemberID or DecodeLocationID rejected its
// input, with a distinct Reason per failure mode so callers can dispatch on
// it without parsing the message string.
type DecodeError struct {
	Reason string
	Input  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode member id %q: %s", e.Input, e.Reason)
}

// Distinct decode failure reasons. Exported so callers can compare against
// them with errors.Is-style equality on the Reason field.
const (
	ReasonEmptyInput     = "empty input"
	ReasonWrongPartCount = "expected exactly 3 colon-separated parts"
	ReasonBadMVID        = "MVID must be 32 lowercase hex digits"
	ReasonBadToken       = "token must be 8 uppercase hex digits"
	ReasonUnknownKind    = "kind must be one of T, M, F, P, E"
	ReasonBadOffset      = "offset must be 4 hex digits"
)

// EncodeMemberID is total and infallible: every valid (mvid, token, kind)
// triple produces a fixed-length 43-byte string
// `{32 lowercase hex}:{8 uppercase hex}:{kind}`.
func EncodeMemberID(mvid uuid.UUID, token uint32, kind Kind) string {
	return fmt.Sprintf("%s:%08X:%s", hex.EncodeToString(mvid[:]), token, kind.String())
}

// Encode is the method form of EncodeMemberID for an already-built
// MemberID.
func (m MemberID) Encode() string {
	return EncodeMemberID(m.MVID, m.Token, m.Kind)
}

// DecodeMemberID parses a member identifier, returning a *DecodeError with
// one of the Reason constants on any malformed input.
func DecodeMemberID(s string) (MemberID, error) {
	if s == "" {
		return MemberID{}, &DecodeError{Reason: ReasonEmptyInput, Input: s}
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return MemberID{}, &DecodeError{Reason: ReasonWrongPartCount, Input: s}
	}

	mvidPart, tokenPart, kindPart := parts[0], parts[1], parts[2]

	if len(mvidPart) != 32 || !isLowerHex(mvidPart) {
		return MemberID{}, &DecodeError{Reason: ReasonBadMVID, Input: s}
	}
	mvidBytes, err := hex.DecodeString(mvidPart)
	if err != nil {
		return MemberID{}, &DecodeError{Reason: ReasonBadMVID, Input: s}
	}
	mvid, err := uuid.FromBytes(mvidBytes)
	if err != nil {
		return MemberID{}, &DecodeError{Reason: ReasonBadMVID, Input: s}
	}

	if len(tokenPart) != 8 || !isUpperHex(tokenPart) {
		return MemberID{}, &DecodeError{Reason: ReasonBadToken, Input: s}
	}
	token, err := strconv.ParseUint(tokenPart, 16, 32)
	if err != nil {
		return MemberID{}, &DecodeError{Reason: ReasonBadToken, Input: s}
	}

	if len(kindPart) != 1 || !Kind(kindPart[0]).valid() {
		return MemberID{}, &DecodeError{Reason: ReasonUnknownKind, Input: s}
	}

	return MemberID{MVID: mvid, Token: uint32(token), Kind: Kind(kindPart[0])}, nil
}

// EncodeLocationID appends a 4-hex-digit byte offset to a member id, e.g.
// "...:06001234:M@001A".
func EncodeLocationID(member MemberID, offset uint16) string {
	return fmt.Sprintf("%s@%04X", member.Encode(), offset)
}

// Encode is a method form of EncodeLocationID.
func (l LocationID) Encode() string { return EncodeLocationID(l.Member, l.Offset) }

// DecodeLocationID decodes a member-id decode first and refuses (returning
// its error unchanged) on any member-id failure, before parsing the offset.
func DecodeLocationID(s string) (LocationID, error) {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return LocationID{}, &DecodeError{Reason: ReasonBadOffset, Input: s}
	}

	memberPart, offsetPart := s[:at], s[at+1:]
	member, err := DecodeMemberID(memberPart)
	if err != nil {
		return LocationID{}, err
	}

	if len(offsetPart) != 4 || !isUpperHex(offsetPart) {
		return LocationID{}, &DecodeError{Reason: ReasonBadOffset, Input: s}
	}
	offset, err := strconv.ParseUint(offsetPart, 16, 16)
	if err != nil {
		return LocationID{}, &DecodeError{Reason: ReasonBadOffset, Input: s}
	}

	return LocationID{Member: member, Offset: uint16(offset)}, nil
}

// IsValid reports whether s decodes as a well-formed member identifier.
func IsValid(s string) bool {
	_, err := DecodeMemberID(s)
	return err == nil
}

// BelongsToAssembly reports whether a decoded member identifier's MVID
// matches the given module's.
func BelongsToAssembly(id MemberID, mvid uuid.UUID) bool {
	return id.MVID == mvid
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func isUpperHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
