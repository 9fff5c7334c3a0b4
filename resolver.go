// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"os"
	"path/filepath"
	"runtime"

	deadlock "github.com/sasha-s/go-deadlock"
	"github.com/samber/lo"

	"github.com/saferwall/clrforge/log"
)

// runtimeRootEnvVar is the environment variable the built-in search level
// consults for the runtime's shared-framework directory, with platform
// fallbacks when it is unset.
const runtimeRootEnvVar = "DOTNET_ROOT"

// maxSearchDepth bounds the User search paths' recursive descent.
const maxSearchDepth = 3

// ResolverStats is a point-in-time snapshot of a Resolver's counters,
// exposed so an out-of-process caller can introspect resolution health
// without reaching into the Resolver's internals — the same
// "observability surface riding along on the model" pattern this image
// model uses for its own Anomalies list.
type ResolverStats struct {
	Total      int
	CacheHits  int
	L1Success  int
	L2Success  int
}

// SuccessRate returns (L1+L2)/Total, or 0 if nothing has been attempted
// yet.
func (s ResolverStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.L1Success+s.L2Success) / float64(s.Total)
}

// Resolver resolves symbolic assembly-reference names to loaded Assembly
// values via a three-level search, caching both positive and negative
// results. All state is guarded by one mutex with short critical sections,
// per the one-mutex-per-resolver discipline.
type Resolver struct {
	mu          deadlock.Mutex
	searchPaths []string
	builtins    []string
	positive    map[string]*Assembly
	negative    map[string]struct{}
	stats       ResolverStats
	opener      func(path string, opts *Options) (*Image, error)
	logger      *log.Helper
}

// NewResolver builds a Resolver with the given user search paths (searched
// depth-first, each capped at maxSearchDepth). runtimeRoot overrides the
// built-in shared-framework directory; empty uses the platform default.
func NewResolver(searchPaths []string, runtimeRoot string, logger *log.Helper) *Resolver {
	if logger == nil {
		logger = log.NewHelper(nil)
	}
	return &Resolver{
		searchPaths: searchPaths,
		builtins:    builtinSearchDirs(runtimeRoot),
		positive:    make(map[string]*Assembly),
		negative:    make(map[string]struct{}),
		opener:      Open,
		logger:      logger,
	}
}

func builtinSearchDirs(runtimeRoot string) []string {
	var dirs []string
	if runtimeRoot == "" {
		runtimeRoot = os.Getenv(runtimeRootEnvVar)
	}
	if runtimeRoot != "" {
		dirs = append(dirs, runtimeRoot)
	}
	switch runtime.GOOS {
	case "windows":
		dirs = append(dirs, `C:\Windows\Microsoft.NET\assembly`)
	default:
		dirs = append(dirs, "/usr/share/dotnet/shared")
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".nuget", "packages"))
	}
	return dirs
}

// Resolve finds the assembly named name. It never raises on a missing
// dependency: a failed resolution returns (nil, false) so the caller can
// proceed with a partially-resolvable graph.
func (r *Resolver) Resolve(name string) (*Assembly, bool) {
	r.mu.Lock()
	r.stats.Total++
	if a, ok := r.positive[name]; ok {
		r.stats.CacheHits++
		r.mu.Unlock()
		return a, true
	}
	if _, ok := r.negative[name]; ok {
		r.stats.CacheHits++
		r.mu.Unlock()
		return nil, false
	}
	builtins := append([]string(nil), r.builtins...)
	userPaths := append([]string(nil), r.searchPaths...)
	r.mu.Unlock()

	// The filesystem walk itself happens outside the lock; only the cache
	// and counters are guarded.
	if a := r.searchLevel(builtins, name, 1); a != nil {
		r.recordSuccess(name, a, 1)
		return a, true
	}
	if a := r.searchLevel(userPaths, name, maxSearchDepth); a != nil {
		r.recordSuccess(name, a, 2)
		return a, true
	}

	r.mu.Lock()
	r.negative[name] = struct{}{}
	r.mu.Unlock()
	return nil, false
}

func (r *Resolver) recordSuccess(name string, a *Assembly, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A later positive resolution replaces any negative entry atomically
	// under the same lock.
	delete(r.negative, name)
	r.positive[name] = a
	switch level {
	case 1:
		r.stats.L1Success++
	case 2:
		r.stats.L2Success++
	}
}

// searchLevel walks dirs depth-first, each capped at maxDepth, looking for
// a file named name (with a .dll extension appended if absent) that loads
// successfully and whose declared name matches.
func (r *Resolver) searchLevel(dirs []string, name string, maxDepth int) *Assembly {
	fileName := name
	if filepath.Ext(fileName) == "" {
		fileName += ".dll"
	}
	for _, dir := range dirs {
		if found := r.searchDir(dir, fileName, maxDepth); found != nil {
			return found
		}
	}
	return nil
}

func (r *Resolver) searchDir(dir, fileName string, depthLeft int) *Assembly {
	if depthLeft < 0 {
		return nil
	}
	candidate := filepath.Join(dir, fileName)
	if _, err := os.Stat(candidate); err == nil {
		if a := r.tryLoad(candidate); a != nil {
			return a
		}
	}
	if depthLeft == 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	subdirs := lo.Filter(entries, func(e os.DirEntry, _ int) bool { return e.IsDir() })
	for _, e := range subdirs {
		if found := r.searchDir(filepath.Join(dir, e.Name()), fileName, depthLeft-1); found != nil {
			return found
		}
	}
	return nil
}

func (r *Resolver) tryLoad(path string) *Assembly {
	img, err := r.opener(path, &Options{Fast: false})
	if err != nil {
		r.logger.Debugf("resolver: failed to open candidate %s: %v", path, err)
		return nil
	}
	if err := img.Parse(); err != nil {
		r.logger.Debugf("resolver: failed to parse candidate %s: %v", path, err)
		return nil
	}
	a, err := NewAssemblyFromImage(img)
	if err != nil {
		r.logger.Debugf("resolver: failed to model candidate %s: %v", path, err)
		return nil
	}
	return a
}

// Stats returns a snapshot of the resolver's counters.
func (r *Resolver) Stats() ResolverStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
