// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// cursorData is the JSON payload a cursor encodes.
type cursorData struct {
	Offset    int    `json:"Offset"`
	Version   string `json:"Version"`
	Timestamp int64  `json:"Timestamp"`
}

// CursorValidity is the tagged result ValidateCursor returns.
type CursorValidity int

const (
	CursorValid CursorValidity = iota
	CursorInvalid
	CursorExpired
)

// Reasons a cursor can be invalid or expired.
const (
	CursorReasonVersionMismatch = "version-mismatch"
	CursorReasonTimeout         = "timeout"
	CursorReasonEmptyInput      = "empty input"
	CursorReasonInvalidBase64   = "invalid base64"
	CursorReasonInvalidJSON     = "invalid JSON"
	CursorReasonMissingFields   = "missing fields"
)

// EncodeCursor produces an opaque cursor for the given offset, version, and
// timestamp (Unix seconds).
func EncodeCursor(offset int, version string, timestamp int64) string {
	data := cursorData{Offset: offset, Version: version, Timestamp: timestamp}
	raw, _ := json.Marshal(data)
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes a cursor's fields without validating them against a
// current version or TTL; call ValidateCursor for that. Fails on empty
// input, invalid base64, invalid JSON, or missing fields.
func DecodeCursor(cursor string) (offset int, version string, timestamp int64, err error) {
	if cursor == "" {
		return 0, "", 0, &DecodeError{Reason: CursorReasonEmptyInput, Input: cursor}
	}
	raw, decErr := base64.URLEncoding.DecodeString(cursor)
	if decErr != nil {
		return 0, "", 0, &DecodeError{Reason: CursorReasonInvalidBase64, Input: cursor}
	}
	var data cursorData
	if jsonErr := json.Unmarshal(raw, &data); jsonErr != nil {
		return 0, "", 0, &DecodeError{Reason: CursorReasonInvalidJSON, Input: cursor}
	}
	if data.Version == "" || data.Timestamp == 0 {
		return 0, "", 0, &DecodeError{Reason: CursorReasonMissingFields, Input: cursor}
	}
	return data.Offset, data.Version, data.Timestamp, nil
}

// ValidateCursor decodes cursor and checks it against currentVersion and an
// age bound (default 3600s if maxAgeSeconds <= 0). The second return value
// is only meaningful for CursorInvalid/CursorExpired; the third is the
// decoded offset, meaningful only for CursorValid.
func ValidateCursor(cursor, currentVersion string, maxAgeSeconds int64, now int64) (CursorValidity, string, int) {
	if maxAgeSeconds <= 0 {
		maxAgeSeconds = 3600
	}
	offset, version, timestamp, err := DecodeCursor(cursor)
	if err != nil {
		de := err.(*DecodeError)
		return CursorInvalid, de.Reason, 0
	}
	if version != currentVersion {
		return CursorExpired, CursorReasonVersionMismatch, 0
	}
	if now-timestamp > maxAgeSeconds {
		return CursorExpired, CursorReasonTimeout, 0
	}
	return CursorValid, "", offset
}

// nowUnix is a seam so Pager/Rewriter code doesn't call time.Now() directly
// in places that might need deterministic tests; production callers just
// use it as-is.
func nowUnix() int64 { return time.Now().Unix() }
