// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

// Framework root type names the factory binds new types against by
// default. These are the well-known BCL names every CLI assembly's
// AssemblyRef to mscorlib/System.Private.CoreLib ultimately resolves.
const (
	frameworkObject    = "System.Object"
	frameworkValueType = "System.ValueType"
	frameworkEnum      = "System.Enum"
	frameworkInt32     = "System.Int32"
)

// TypeDef type-attribute bits the factory sets. Only the subset §4.10
// names is defined; the rest of the TypeAttributes bitmask has no named
// constants in this package.
const (
	taPublic      uint32 = 0x00000001
	taInterface   uint32 = 0x00000020
	taAbstract    uint32 = 0x00000080
	taSealed      uint32 = 0x00000100
)

// taSequentialLayout is the TypeAttributes layout bit NewValueType sets.
const taSequentialLayout uint32 = 0x00000008

// FieldAttributes bits the factory sets for enum backing fields.
const (
	faPublic       uint16 = 0x0001
	faStatic       uint16 = 0x0010
	faLiteral      uint16 = 0x0040
	faSpecialName  uint16 = 0x0200
	faRTSpecialName uint16 = 0x0400
)

// DetachedType is a type definition the factory has produced but not yet
// attached to any assembly; the Rewriter is the only thing that attaches
// it, so a type reference can be validated and renumbered against the
// target module at attach time.
type DetachedType struct {
	Name      string
	Namespace string
	Attrs     uint32
	BaseType  string // framework or caller-supplied full name; "" for interfaces
	Sealed    bool

	Fields  []DetachedField
	Methods []DetachedMethod
}

// DetachedField is a field definition not yet attached to any type.
type DetachedField struct {
	Name     string
	Type     TypeSig
	Attrs    uint16
	Constant any // literal value for a literal static field, nil otherwise
}

// DetachedMethod is a method definition not yet attached to any type.
type DetachedMethod struct {
	Name       string
	Params     []ParamSig
	ReturnType TypeSig
	Attrs      uint32
	IsCtor     bool
}

// DetachedProperty is an auto-property the factory produces as a linked
// (property, backing-field, getter, setter) tuple. Wiring the getter/setter
// bodies is left to the caller; the factory only sets the property's
// getter/setter links.
type DetachedProperty struct {
	Property     DetachedField // reuses DetachedField's shape; a property has no storage of its own
	BackingField DetachedField
	Getter       DetachedMethod
	Setter       DetachedMethod
}

// TypeFactory produces well-formed detached type and member definitions.
// It carries no state: every method is a pure constructor over its
// arguments, consistent with the teacher's file.Options pattern of a
// struct of knobs rather than a stateful service.
type TypeFactory struct{}

// NewTypeFactory builds a TypeFactory.
func NewTypeFactory() *TypeFactory { return &TypeFactory{} }

// NewClass produces a public class descending from System.Object. It adds
// no constructor and no link to the parent type's constructor.
func (*TypeFactory) NewClass(namespace, name string) *DetachedType {
	return &DetachedType{
		Name:      name,
		Namespace: namespace,
		Attrs:     taPublic,
		BaseType:  frameworkObject,
	}
}

// NewInterface produces an interface: the `interface|abstract` attribute
// pair and a null parent.
func (*TypeFactory) NewInterface(namespace, name string) *DetachedType {
	return &DetachedType{
		Name:      name,
		Namespace: namespace,
		Attrs:     taPublic | taInterface | taAbstract,
		BaseType:  "",
	}
}

// NewValueType produces a value-type: descends from System.ValueType,
// sealed, with the sequential-layout attribute bit set (no ClassLayout row
// is added).
func (*TypeFactory) NewValueType(namespace, name string) *DetachedType {
	return &DetachedType{
		Name:      name,
		Namespace: namespace,
		Attrs:     taPublic | taSealed | taSequentialLayout,
		BaseType:  frameworkValueType,
		Sealed:    true,
	}
}

// NewEnum produces an enum: descends from System.Enum, sealed, with a
// compiler-recognized `value__` instance field of 32-bit integer type plus
// a literal static field per named member.
func (*TypeFactory) NewEnum(namespace, name string, members map[string]int32) *DetachedType {
	t := &DetachedType{
		Name:      name,
		Namespace: namespace,
		Attrs:     taPublic | taSealed,
		BaseType:  frameworkEnum,
		Sealed:    true,
		Fields: []DetachedField{{
			Name:  "value__",
			Type:  Plain(frameworkInt32),
			Attrs: faPublic | faSpecialName | faRTSpecialName,
		}},
	}
	for memberName, v := range members {
		t.Fields = append(t.Fields, DetachedField{
			Name:     memberName,
			Type:     Plain(name),
			Attrs:    faPublic | faStatic | faLiteral,
			Constant: v,
		})
	}
	return t
}

// NewMethod builds a method definition with an ordered parameter list.
func (*TypeFactory) NewMethod(name string, params []ParamSig, returnType TypeSig, attrs uint32) DetachedMethod {
	return DetachedMethod{Name: name, Params: params, ReturnType: returnType, Attrs: attrs}
}

// NewConstructor builds a constructor definition with an ordered parameter
// list; callers supply a body (typically a base-constructor call followed
// by field initializers) via the Emitter/Injector before attaching.
func (*TypeFactory) NewConstructor(params []ParamSig, attrs uint32) DetachedMethod {
	return DetachedMethod{Name: ".ctor", Params: params, ReturnType: Plain("System.Void"), Attrs: attrs, IsCtor: true}
}

// NewAutoProperty produces the linked (property, backing-field, getter,
// setter) tuple; the getter/setter bodies are left for the caller to wire
// with the Emitter before attaching via the Rewriter.
func (*TypeFactory) NewAutoProperty(name string, sig TypeSig, attrs uint32) DetachedProperty {
	backingName := "<" + name + ">k__BackingField"
	getter := DetachedMethod{Name: "get_" + name, ReturnType: sig, Attrs: attrs}
	setter := DetachedMethod{
		Name:       "set_" + name,
		ReturnType: Plain("System.Void"),
		Params:     []ParamSig{{Name: "value", Type: sig}},
		Attrs:      attrs,
	}
	return DetachedProperty{
		Property:     DetachedField{Name: name, Type: sig},
		BackingField: DetachedField{Name: backingName, Type: sig, Attrs: 0},
		Getter:       getter,
		Setter:       setter,
	}
}
