// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"testing"
	"time"
)

func TestDefaultConfigSeedsPageSizeAndTTL(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PageSize.Default != 50 || cfg.PageSize.Cap != 500 {
		t.Errorf("DefaultConfig().PageSize = %+v, want {50 500}", cfg.PageSize)
	}
	if cfg.CursorTTL != 3600*time.Second {
		t.Errorf("DefaultConfig().CursorTTL = %v, want 1h", cfg.CursorTTL)
	}
	if cfg.SearchPaths != nil || cfg.RuntimeRoot != "" {
		t.Errorf("DefaultConfig() should leave SearchPaths/RuntimeRoot empty: %+v", cfg)
	}
}
