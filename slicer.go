// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"github.com/samber/lo"
)

// SliceError reports why Slice or SliceRange rejected its offset/count.
type SliceError struct {
	Reason string
}

func (e *SliceError) Error() string { return e.Reason }

// Distinct Slicer failure reasons.
const (
	ReasonInvalidOffset = "invalid_offset"
	ReasonInvalidCount  = "invalid_count"
)

// Slice returns items [offset, offset+count) from seq, clipped to seq's
// length. Offsets beyond the length are not errors: they produce an empty
// slice at the correct stated offset. Negative offset or count is an error.
func Slice[T any](seq []T, offset, count int) ([]T, error) {
	if offset < 0 {
		return nil, &SliceError{Reason: ReasonInvalidOffset}
	}
	if count < 0 {
		return nil, &SliceError{Reason: ReasonInvalidCount}
	}
	if offset >= len(seq) {
		return []T{}, nil
	}
	end := offset + count
	if end > len(seq) {
		end = len(seq)
	}
	return seq[offset:end], nil
}

// SliceRange returns items [start, end) from seq (exclusive upper bound),
// clipped to seq's length.
func SliceRange[T any](seq []T, start, end int) ([]T, error) {
	if start < 0 {
		return nil, &SliceError{Reason: ReasonInvalidOffset}
	}
	if end < start {
		return nil, &SliceError{Reason: ReasonInvalidCount}
	}
	return Slice(seq, start, end-start)
}

// Batch yields consecutive non-overlapping sub-sequences of size, the last
// possibly short. Built on samber/lo's chunking since it already clips the
// final batch correctly.
func Batch[T any](seq []T, size int) [][]T {
	if size <= 0 || len(seq) == 0 {
		return nil
	}
	return lo.Chunk(seq, size)
}
