// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

// Pager turns a materialized sequence, an optional cursor, and an optional
// page size into a stateless page. DefaultSize and CapSize mirror
// Config.PageSize; the zero value uses the module-wide defaults (50/500).
type Pager struct {
	DefaultSize int
	CapSize     int
	Version     string
	MaxAgeSec   int64
}

// NewPager builds a Pager from a Config, defaulting to DefaultConfig's
// page-size bounds if cfg is nil.
func NewPager(cfg *Config, version string) *Pager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pager{
		DefaultSize: cfg.PageSize.Default,
		CapSize:     cfg.PageSize.Cap,
		Version:     version,
		MaxAgeSec:   int64(cfg.CursorTTL.Seconds()),
	}
}

// Page is the result of Pager.Page: a slice of items, the cursor to fetch
// the next page (nil once the end is reached), whether more items remain,
// and the total count of the underlying sequence.
type Page[T any] struct {
	Items      []T
	Cursor     *string
	HasMore    bool
	TotalCount int
}

func (p *Pager) clampSize(size int) int {
	if size <= 0 {
		size = p.defaultSize()
	}
	if size > p.capSize() {
		size = p.capSize()
	}
	return size
}

func (p *Pager) defaultSize() int {
	if p.DefaultSize <= 0 {
		return 50
	}
	return p.DefaultSize
}

func (p *Pager) capSize() int {
	if p.CapSize <= 0 {
		return 500
	}
	return p.CapSize
}

// Page paginates seq. cursor may be empty (start from offset 0); size <= 0
// coerces to the default, and is clamped to the cap.
func (p *Pager) Page(seq []any, cursor string, size int) (Page[any], error) {
	return pageImpl(p, seq, cursor, size)
}

// pageImpl is generic so PageOf[T] below can reuse it without a second
// copy of the offset/cursor arithmetic; Page itself stays non-generic for
// callers that already hold []any (e.g. a CLI formatter).
func pageImpl[T any](p *Pager, seq []T, cursor string, size int) (Page[T], error) {
	size = p.clampSize(size)

	offset := 0
	if cursor != "" {
		validity, reason, decodedOffset := ValidateCursor(cursor, p.Version, p.MaxAgeSec, nowUnix())
		switch validity {
		case CursorExpired:
			return Page[T]{}, NewError(CodeCursorExpired, reason)
		case CursorInvalid:
			return Page[T]{}, NewError(CodeCursorInvalid, reason)
		}
		offset = decodedOffset
	}

	items, err := Slice(seq, offset, size)
	if err != nil {
		return Page[T]{}, NewError(CodeInvalidParameter, err.Error())
	}

	hasMore := offset+size < len(seq)
	var next *string
	if hasMore {
		c := EncodeCursor(offset+size, p.Version, nowUnix())
		next = &c
	}

	return Page[T]{Items: items, Cursor: next, HasMore: hasMore, TotalCount: len(seq)}, nil
}

// PageOf paginates a strongly-typed sequence. Preferred over Page when the
// caller already has a concrete slice type.
func PageOf[T any](p *Pager, seq []T, cursor string, size int) (Page[T], error) {
	return pageImpl(p, seq, cursor, size)
}
