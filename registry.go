// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"encoding/hex"
	"sort"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/saferwall/clrforge/log"
)

// Registry is a process-wide map of loaded assemblies keyed by MVID hex
// string. One writer at a time; reads may proceed concurrently with other
// reads. Treat it as a value owned by the composition root and passed by
// reference into every component that needs it, not a package-level
// singleton, so tests can construct isolated registries.
type Registry struct {
	mu          deadlock.RWMutex
	assemblies  map[string]*Assembly
	defaultKey  string
	hasDefault  bool
	logger      *log.Helper
}

// NewRegistry builds an empty registry. A nil logger gets a default.
func NewRegistry(logger *log.Helper) *Registry {
	if logger == nil {
		logger = log.NewHelper(nil)
	}
	return &Registry{assemblies: make(map[string]*Assembly), logger: logger}
}

// mvidKey renders an MVID the same way the identifier codec does (32
// lowercase hex digits, no dashes) so registry keys and member identifiers
// agree on one MVID spelling.
func mvidKey(a *Assembly) string {
	return hex.EncodeToString(a.MVID[:])
}

// Register adds or replaces the entry for model's MVID. If no default is
// set yet, model becomes the default.
func (r *Registry) Register(model *Assembly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := mvidKey(model)
	r.assemblies[key] = model
	if !r.hasDefault {
		r.defaultKey = key
		r.hasDefault = true
	}
}

// Get looks a model up by MVID hex key. An empty key returns the default,
// or the first entry in iteration order if no default is set — documented
// explicitly because analysis tools often omit the module key when context
// is unambiguous.
func (r *Registry) Get(key string) (*Assembly, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == "" {
		return r.getDefaultLocked()
	}
	a, ok := r.assemblies[key]
	return a, ok
}

// GetDefault returns the current default assembly, if any.
func (r *Registry) GetDefault() (*Assembly, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getDefaultLocked()
}

func (r *Registry) getDefaultLocked() (*Assembly, bool) {
	if r.hasDefault {
		if a, ok := r.assemblies[r.defaultKey]; ok {
			return a, true
		}
	}
	keys := make([]string, 0, len(r.assemblies))
	for k := range r.assemblies {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return r.assemblies[keys[0]], true
}

// List returns every registered assembly, ordered by MVID key for
// deterministic output.
func (r *Registry) List() []*Assembly {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.assemblies))
	for k := range r.assemblies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Assembly, len(keys))
	for i, k := range keys {
		out[i] = r.assemblies[k]
	}
	return out
}

// SetDefault marks key as the default assembly. Returns false, leaving the
// prior default unchanged, if key is not registered.
func (r *Registry) SetDefault(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assemblies[key]; !ok {
		return false
	}
	r.defaultKey = key
	r.hasDefault = true
	return true
}

// Unload removes key from the registry. If it was the default, the default
// pointer is cleared (the invariant "default equals one of the keys, or is
// null" is restored rather than silently picking a new default).
func (r *Registry) Unload(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assemblies[key]; !ok {
		return false
	}
	delete(r.assemblies, key)
	if r.hasDefault && r.defaultKey == key {
		r.hasDefault = false
		r.defaultKey = ""
	}
	return true
}

// Count returns the number of registered assemblies.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assemblies)
}
