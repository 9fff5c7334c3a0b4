// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"reflect"
	"testing"
)

func TestSliceWithinBounds(t *testing.T) {
	seq := []int{0, 1, 2, 3, 4}
	got, err := Slice(seq, 1, 2)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Slice(1,2) = %v, want [1 2]", got)
	}
}

func TestSliceClipsCountPastEnd(t *testing.T) {
	seq := []int{0, 1, 2}
	got, err := Slice(seq, 1, 10)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Slice(1,10) = %v, want [1 2]", got)
	}
}

func TestSliceOffsetPastEndIsEmptyNotError(t *testing.T) {
	seq := []int{0, 1, 2}
	got, err := Slice(seq, 99, 5)
	if err != nil {
		t.Fatalf("Slice() past end should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Slice() past end = %v, want empty", got)
	}
}

func TestSliceRejectsNegativeOffsetAndCount(t *testing.T) {
	seq := []int{0, 1, 2}
	if _, err := Slice(seq, -1, 1); err == nil {
		t.Error("Slice() with negative offset should fail")
	} else if se := err.(*SliceError); se.Reason != ReasonInvalidOffset {
		t.Errorf("Slice() negative offset reason = %q", se.Reason)
	}
	if _, err := Slice(seq, 0, -1); err == nil {
		t.Error("Slice() with negative count should fail")
	} else if se := err.(*SliceError); se.Reason != ReasonInvalidCount {
		t.Errorf("Slice() negative count reason = %q", se.Reason)
	}
}

func TestSliceRangeExclusiveUpperBound(t *testing.T) {
	seq := []int{0, 1, 2, 3}
	got, err := SliceRange(seq, 1, 3)
	if err != nil {
		t.Fatalf("SliceRange() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("SliceRange(1,3) = %v, want [1 2]", got)
	}
}

func TestSliceRangeEndBeforeStartIsError(t *testing.T) {
	seq := []int{0, 1, 2}
	if _, err := SliceRange(seq, 2, 1); err == nil {
		t.Error("SliceRange() with end < start should fail")
	}
}

func TestBatchChunksWithShortLastBatch(t *testing.T) {
	got := Batch([]int{0, 1, 2, 3, 4}, 2)
	want := [][]int{{0, 1}, {2, 3}, {4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Batch() = %v, want %v", got, want)
	}
}

func TestBatchZeroSizeOrEmptyIsNil(t *testing.T) {
	if got := Batch([]int{1, 2}, 0); got != nil {
		t.Errorf("Batch() with size 0 = %v, want nil", got)
	}
	if got := Batch([]int{}, 3); got != nil {
		t.Errorf("Batch() on empty sequence = %v, want nil", got)
	}
}
