// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import "testing"

func TestTypeFactoryNewClass(t *testing.T) {
	typ := NewTypeFactory().NewClass("Acme.Widgets", "Gadget")
	if typ.Namespace != "Acme.Widgets" || typ.Name != "Gadget" {
		t.Fatalf("NewClass() name/namespace = %q/%q", typ.Namespace, typ.Name)
	}
	if typ.BaseType != frameworkObject {
		t.Errorf("NewClass() BaseType = %q, want %q", typ.BaseType, frameworkObject)
	}
	if typ.Attrs&taPublic == 0 {
		t.Error("NewClass() should be public")
	}
}

func TestTypeFactoryNewInterface(t *testing.T) {
	typ := NewTypeFactory().NewInterface("Acme", "IWidget")
	if typ.BaseType != "" {
		t.Errorf("NewInterface() BaseType = %q, want empty", typ.BaseType)
	}
	if typ.Attrs&taInterface == 0 || typ.Attrs&taAbstract == 0 {
		t.Errorf("NewInterface() Attrs = %#x, want interface|abstract set", typ.Attrs)
	}
}

func TestTypeFactoryNewValueType(t *testing.T) {
	typ := NewTypeFactory().NewValueType("Acme", "Point")
	if !typ.Sealed {
		t.Error("NewValueType() should be sealed")
	}
	if typ.BaseType != frameworkValueType {
		t.Errorf("NewValueType() BaseType = %q, want %q", typ.BaseType, frameworkValueType)
	}
}

func TestTypeFactoryNewEnum(t *testing.T) {
	typ := NewTypeFactory().NewEnum("Acme", "Color", map[string]int32{"Red": 0, "Green": 1})
	if typ.BaseType != frameworkEnum || !typ.Sealed {
		t.Fatalf("NewEnum() BaseType/Sealed = %q/%v", typ.BaseType, typ.Sealed)
	}
	if len(typ.Fields) != 3 {
		t.Fatalf("NewEnum() Fields count = %d, want 3 (value__ plus two members)", len(typ.Fields))
	}
	var sawValueField, sawRed bool
	for _, f := range typ.Fields {
		switch f.Name {
		case "value__":
			sawValueField = true
			if f.Type.FullName != frameworkInt32 {
				t.Errorf("value__ field type = %q, want %q", f.Type.FullName, frameworkInt32)
			}
		case "Red":
			sawRed = true
			if f.Attrs&faLiteral == 0 || f.Attrs&faStatic == 0 {
				t.Error("Red member field should be static and literal")
			}
			if f.Constant != int32(0) {
				t.Errorf("Red member Constant = %v, want 0", f.Constant)
			}
		}
	}
	if !sawValueField || !sawRed {
		t.Errorf("NewEnum() missing expected fields: %+v", typ.Fields)
	}
}

func TestTypeFactoryNewConstructor(t *testing.T) {
	ctor := NewTypeFactory().NewConstructor(nil, taPublic)
	if ctor.Name != ".ctor" || !ctor.IsCtor {
		t.Errorf("NewConstructor() Name/IsCtor = %q/%v", ctor.Name, ctor.IsCtor)
	}
	if ctor.ReturnType.FullName != "System.Void" {
		t.Errorf("NewConstructor() ReturnType = %q, want System.Void", ctor.ReturnType.FullName)
	}
}

func TestTypeFactoryNewAutoProperty(t *testing.T) {
	prop := NewTypeFactory().NewAutoProperty("Name", Plain("System.String"), taPublic)

	if prop.BackingField.Name != "<Name>k__BackingField" {
		t.Errorf("NewAutoProperty() backing field name = %q", prop.BackingField.Name)
	}
	if prop.Getter.Name != "get_Name" || prop.Setter.Name != "set_Name" {
		t.Errorf("NewAutoProperty() accessor names = %q/%q", prop.Getter.Name, prop.Setter.Name)
	}
	if len(prop.Setter.Params) != 1 || prop.Setter.Params[0].Name != "value" {
		t.Errorf("NewAutoProperty() setter params = %+v", prop.Setter.Params)
	}
	if prop.Getter.ReturnType.FullName != "System.String" {
		t.Errorf("NewAutoProperty() getter return type = %q", prop.Getter.ReturnType.FullName)
	}
}
