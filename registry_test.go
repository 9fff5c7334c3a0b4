// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"testing"

	"github.com/google/uuid"
)

func assemblyWithMVID(mvid uuid.UUID) *Assembly {
	return &Assembly{MVID: mvid}
}

func TestRegistryRegisterFirstBecomesDefault(t *testing.T) {
	r := NewRegistry(nil)
	a := assemblyWithMVID(uuid.New())
	r.Register(a)

	got, ok := r.GetDefault()
	if !ok || got != a {
		t.Errorf("GetDefault() = %v, %v, want the first registered assembly", got, ok)
	}
}

func TestRegistryGetByKey(t *testing.T) {
	r := NewRegistry(nil)
	a := assemblyWithMVID(uuid.New())
	r.Register(a)

	got, ok := r.Get(mvidKey(a))
	if !ok || got != a {
		t.Errorf("Get(key) = %v, %v, want %v, true", got, ok, a)
	}
}

func TestRegistryGetEmptyKeyReturnsDefault(t *testing.T) {
	r := NewRegistry(nil)
	a := assemblyWithMVID(uuid.New())
	r.Register(a)

	got, ok := r.Get("")
	if !ok || got != a {
		t.Errorf("Get(\"\") = %v, %v, want default %v", got, ok, a)
	}
}

func TestRegistrySecondRegisterDoesNotChangeDefault(t *testing.T) {
	r := NewRegistry(nil)
	first := assemblyWithMVID(uuid.New())
	second := assemblyWithMVID(uuid.New())
	r.Register(first)
	r.Register(second)

	got, _ := r.GetDefault()
	if got != first {
		t.Error("registering a second assembly should not change the default")
	}
}

func TestRegistrySetDefault(t *testing.T) {
	r := NewRegistry(nil)
	first := assemblyWithMVID(uuid.New())
	second := assemblyWithMVID(uuid.New())
	r.Register(first)
	r.Register(second)

	if !r.SetDefault(mvidKey(second)) {
		t.Fatal("SetDefault() on a registered key should succeed")
	}
	got, _ := r.GetDefault()
	if got != second {
		t.Error("SetDefault() did not change the default")
	}

	if r.SetDefault("not-a-real-key") {
		t.Error("SetDefault() on an unregistered key should fail")
	}
	got, _ = r.GetDefault()
	if got != second {
		t.Error("SetDefault() with a bad key should leave the prior default unchanged")
	}
}

func TestRegistryUnloadClearsDefault(t *testing.T) {
	r := NewRegistry(nil)
	a := assemblyWithMVID(uuid.New())
	r.Register(a)

	if !r.Unload(mvidKey(a)) {
		t.Fatal("Unload() on a registered key should succeed")
	}
	if _, ok := r.GetDefault(); ok {
		t.Error("Unload() of the default entry should clear the default, not pick a new one")
	}
	if r.Count() != 0 {
		t.Errorf("Count() after Unload() = %d, want 0", r.Count())
	}
}

func TestRegistryUnloadUnknownKeyFails(t *testing.T) {
	r := NewRegistry(nil)
	if r.Unload("nope") {
		t.Error("Unload() of an unregistered key should fail")
	}
}

func TestRegistryListIsSortedByKey(t *testing.T) {
	r := NewRegistry(nil)
	a := assemblyWithMVID(uuid.New())
	b := assemblyWithMVID(uuid.New())
	r.Register(a)
	r.Register(b)

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List() length = %d, want 2", len(list))
	}
	if mvidKey(a) > mvidKey(b) {
		a, b = b, a // keep the assertion order matching the sort
	}
	if list[0] != a || list[1] != b {
		t.Errorf("List() is not sorted by MVID key")
	}
}
