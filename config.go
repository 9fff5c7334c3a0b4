// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "time"

// Config holds the handful of knobs the core actually reads. There is no
// env/file loader here: composing a Config from flags, environment, or a
// config file is the caller's concern (cmd/clrforge builds no Config; it
// passes its flag values straight to NewResolver).
type Config struct {
	// SearchPaths are additional user-supplied directories the Resolver
	// walks after its built-in search locations.
	SearchPaths []string

	// RuntimeRoot overrides the runtime's shared-framework directory the
	// Resolver's built-in search otherwise derives from platform defaults.
	// Empty means "use the platform default".
	RuntimeRoot string

	// PageSize is the Pager's default and cap.
	PageSize PageSizeConfig

	// CursorTTL bounds how long an issued cursor remains valid.
	CursorTTL time.Duration
}

// PageSizeConfig bounds the Pager's page size.
type PageSizeConfig struct {
	Default int
	Cap     int
}

// DefaultConfig seeds the page-size default (50), cap (500), and cursor TTL
// (3600s) this module's spec fixes, leaving search paths and the runtime
// root override empty.
func DefaultConfig() *Config {
	return &Config{
		PageSize:  PageSizeConfig{Default: 50, Cap: 500},
		CursorTTL: 3600 * time.Second,
	}
}
