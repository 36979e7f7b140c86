package loader

import (
	"fmt"

	"github.com/chazu/enumforge/pkg/classfile"
)

// Value is anything the interpreter keeps on the operand stack, in a
// local or in a static field: int32, string, *ClassRef, *Instance, *Array,
// or nil for null.
type Value any

// Instance is an object of a loaded enum class. Name and Ordinal are set
// by the java/lang/Enum constructor.
type Instance struct {
	Class       *Class
	Name        string
	Ordinal     int32
	constructed bool
}

func (o *Instance) String() string {
	return fmt.Sprintf("%s.%s(%d)", o.Class.Name, o.Name, o.Ordinal)
}

// Array is a one-dimensional reference array.
type Array struct {
	Elem  string // component descriptor, e.g. "Lcom/x/Color;"
	Items []Value
}

// Descriptor returns the array type descriptor.
func (a *Array) Descriptor() string {
	return classfile.ArrayDescriptor(a.Elem)
}

// ClassRef is the result of ldc of a CONSTANT_Class: a java.lang.Class.
type ClassRef struct {
	Name string
}

func describe(v Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case int32:
		return "int"
	case string:
		return classfile.StringClass
	case *ClassRef:
		return classfile.ClassClass
	case *Instance:
		return v.Class.Name
	case *Array:
		return v.Descriptor()
	default:
		return fmt.Sprintf("%T", v)
	}
}
