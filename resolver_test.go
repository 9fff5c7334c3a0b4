// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func TestResolverStatsSuccessRate(t *testing.T) {
	s := ResolverStats{}
	if got := s.SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() on zero stats = %v, want 0", got)
	}
	s = ResolverStats{Total: 4, L1Success: 1, L2Success: 1}
	if got := s.SuccessRate(); got != 0.5 {
		t.Errorf("SuccessRate() = %v, want 0.5", got)
	}
}

func TestResolverResolveMissingAssemblyCachesNegative(t *testing.T) {
	r := NewResolver(nil, t.TempDir(), nil)

	_, ok := r.Resolve("DoesNotExist")
	if ok {
		t.Fatal("Resolve() for a nonexistent assembly should fail")
	}
	if _, negative := r.negative["DoesNotExist"]; !negative {
		t.Error("Resolve() should cache the miss in the negative set")
	}

	stats := r.Stats()
	if stats.Total != 1 {
		t.Errorf("Stats().Total = %d, want 1", stats.Total)
	}
}

func TestResolverResolveRepeatedMissHitsNegativeCache(t *testing.T) {
	r := NewResolver(nil, t.TempDir(), nil)

	r.Resolve("Missing")
	r.Resolve("Missing")

	stats := r.Stats()
	if stats.Total != 2 {
		t.Fatalf("Stats().Total = %d, want 2", stats.Total)
	}
	if stats.CacheHits != 1 {
		t.Errorf("Stats().CacheHits = %d, want 1 (the second lookup hit the negative cache)", stats.CacheHits)
	}
}

func TestResolverRecordSuccessPromotesFromNegativeToPositive(t *testing.T) {
	r := NewResolver(nil, t.TempDir(), nil)
	r.negative["Acme.Widgets"] = struct{}{}

	a := &Assembly{}
	r.recordSuccess("Acme.Widgets", a, 1)

	if _, stillNegative := r.negative["Acme.Widgets"]; stillNegative {
		t.Error("recordSuccess() should remove the name from the negative cache")
	}
	got, ok := r.Resolve("Acme.Widgets")
	if !ok || got != a {
		t.Errorf("Resolve() after recordSuccess() = %v, %v, want %v, true", got, ok, a)
	}
	if r.Stats().L1Success != 1 {
		t.Errorf("Stats().L1Success = %d, want 1", r.Stats().L1Success)
	}
}

func TestResolverResolvePositiveCacheHit(t *testing.T) {
	r := NewResolver(nil, t.TempDir(), nil)
	a := &Assembly{}
	r.recordSuccess("Acme.Widgets", a, 2)

	r.Resolve("Acme.Widgets")
	stats := r.Stats()
	if stats.CacheHits != 1 {
		t.Errorf("Stats().CacheHits = %d, want 1", stats.CacheHits)
	}
	if stats.L2Success != 1 {
		t.Errorf("Stats().L2Success = %d, want 1 from the original recordSuccess call", stats.L2Success)
	}
}

func TestBuiltinSearchDirsHonorsRuntimeRootOverride(t *testing.T) {
	dirs := builtinSearchDirs("/custom/runtime/root")
	if len(dirs) == 0 || dirs[0] != "/custom/runtime/root" {
		t.Errorf("builtinSearchDirs() = %v, want the override first", dirs)
	}
}

func TestSearchDirNegativeDepthStopsImmediately(t *testing.T) {
	r := NewResolver(nil, "", nil)
	if found := r.searchDir(t.TempDir(), "whatever.dll", -1); found != nil {
		t.Error("searchDir() with depthLeft < 0 should return nil without touching the filesystem")
	}
}
