// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"testing"
	"time"
)

func testSeq(n int) []any {
	seq := make([]any, n)
	for i := range seq {
		seq[i] = i
	}
	return seq
}

func TestPagerFirstPageDefaultSize(t *testing.T) {
	p := NewPager(&Config{PageSize: PageSizeConfig{Default: 10, Cap: 100}}, "v1")
	page, err := p.Page(testSeq(25), "", 0)
	if err != nil {
		t.Fatalf("Page() failed: %v", err)
	}
	if len(page.Items) != 10 || !page.HasMore || page.TotalCount != 25 {
		t.Errorf("first page = %+v", page)
	}
	if page.Cursor == nil {
		t.Fatal("first page with more items should carry a cursor")
	}
}

func TestPagerSizeClampedToCap(t *testing.T) {
	p := NewPager(&Config{PageSize: PageSizeConfig{Default: 10, Cap: 5}}, "v1")
	page, err := p.Page(testSeq(20), "", 1000)
	if err != nil {
		t.Fatalf("Page() failed: %v", err)
	}
	if len(page.Items) != 5 {
		t.Errorf("Page() size = %d, want clamped to cap 5", len(page.Items))
	}
}

func TestPagerWalksToEnd(t *testing.T) {
	p := NewPager(&Config{PageSize: PageSizeConfig{Default: 4, Cap: 100}, CursorTTL: 3600 * time.Second}, "v1")
	seq := testSeq(10)

	var cursor string
	var seen int
	for i := 0; i < 10; i++ {
		page, err := p.Page(seq, cursor, 0)
		if err != nil {
			t.Fatalf("Page() iteration %d failed: %v", i, err)
		}
		seen += len(page.Items)
		if !page.HasMore {
			if seen != len(seq) {
				t.Errorf("walked to end with %d items seen, want %d", seen, len(seq))
			}
			return
		}
		cursor = *page.Cursor
	}
	t.Fatal("Page() never reached the end within 10 iterations")
}

func TestPagerDefaultsFromNilConfig(t *testing.T) {
	p := NewPager(nil, "v1")
	if p.DefaultSize != 50 || p.CapSize != 500 {
		t.Errorf("NewPager(nil) = %+v, want defaults 50/500", p)
	}
}

func TestPagerRejectsExpiredCursor(t *testing.T) {
	p := NewPager(&Config{PageSize: PageSizeConfig{Default: 10, Cap: 100}}, "v1")
	staleCursor := EncodeCursor(0, "v1", 1000)
	_, err := p.Page(testSeq(5), staleCursor, 0)
	if err == nil {
		t.Fatal("Page() with a stale-timestamp cursor should fail")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Code != CodeCursorExpired {
		t.Errorf("Page() expired cursor err = %v, want CodeCursorExpired", err)
	}
}

func TestPagerRejectsCursorFromDifferentVersion(t *testing.T) {
	p := NewPager(&Config{PageSize: PageSizeConfig{Default: 10, Cap: 100}}, "v2")
	c := EncodeCursor(0, "v1", nowUnix())
	_, err := p.Page(testSeq(5), c, 0)
	if err == nil {
		t.Fatal("Page() with a cursor minted under a different version should fail")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Code != CodeCursorExpired {
		t.Errorf("Page() version-mismatched cursor err = %v, want CodeCursorExpired", err)
	}
}

func TestPageOfStronglyTyped(t *testing.T) {
	p := NewPager(&Config{PageSize: PageSizeConfig{Default: 2, Cap: 10}}, "v1")
	page, err := PageOf(p, []string{"a", "b", "c"}, "", 0)
	if err != nil {
		t.Fatalf("PageOf() failed: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0] != "a" {
		t.Errorf("PageOf() items = %v", page.Items)
	}
}
