package classfile

import (
	"errors"

	"github.com/chazu/enumforge/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Format constants
// ---------------------------------------------------------------------------

// Magic identifies a class file.
const Magic uint32 = 0xCAFEBABE

// Class file version written by this package. 49.0 is the first version
// with enums and ldc of class constants, and the last one that never needs
// a StackMapTable, so straight-line code is loadable without frames.
const (
	MajorVersion uint16 = 49
	MinorVersion uint16 = 0
)

// Hard limits from the class file format.
const (
	MaxCodeLength  = 65535
	MaxMembers     = 65535
	MaxStackDepth  = 65535
	MaxLocalsCount = 65535
)

// AccessFlags is the access_flags bitmask of a class, field or method.
type AccessFlags uint16

const (
	AccPublic    AccessFlags = 0x0001
	AccPrivate   AccessFlags = 0x0002
	AccProtected AccessFlags = 0x0004
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccSuper     AccessFlags = 0x0020
	AccSynthetic AccessFlags = 0x1000
	AccEnum      AccessFlags = 0x4000
)

// Has reports whether all bits of mask are set.
func (f AccessFlags) Has(mask AccessFlags) bool {
	return f&mask == mask
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrConstantPoolOverflow = errors.New("constant pool overflow")
	ErrStringTooLong        = errors.New("constant string exceeds 65535 bytes of modified UTF-8")
	ErrInvalidUTF8          = errors.New("constant string is not valid UTF-8")
	ErrCodeTooLarge         = errors.New("method code exceeds 65535 bytes")
	ErrEmptyCode            = errors.New("method has no code")
	ErrStackTooDeep         = errors.New("method max_stack exceeds 65535")
	ErrTooManyMembers       = errors.New("too many fields or methods")
	ErrDuplicateMember      = errors.New("duplicate member")
	ErrBadDescriptor        = errors.New("malformed descriptor")
)

// ---------------------------------------------------------------------------
// Class records
// ---------------------------------------------------------------------------

// Class is the structural description of one class file under construction.
// Constant pool entries for names and descriptors are added as members are
// declared, so the pool order follows declaration order.
type Class struct {
	Name      string // internal name, e.g. "com/x/Color"
	SuperName string
	Access    AccessFlags
	Pool      *ConstantPool
	Fields    []*Field
	Methods   []*Method

	thisIndex  uint16
	superIndex uint16
	codeIndex  uint16
}

// Field is a field_info record.
type Field struct {
	Name       string
	Descriptor string
	Access     AccessFlags

	nameIndex uint16
	descIndex uint16
}

// Method is a method_info record with a Code attribute.
type Method struct {
	Name       string
	Descriptor string
	Access     AccessFlags
	Code       *bytecode.Builder
	MaxLocals  int

	nameIndex uint16
	descIndex uint16
}

// NewClass starts a class with the given internal name and superclass.
func NewClass(name, superName string, access AccessFlags) *Class {
	pool := NewConstantPool()
	c := &Class{
		Name:      name,
		SuperName: superName,
		Access:    access,
		Pool:      pool,
	}
	c.thisIndex = pool.Class(name)
	c.superIndex = pool.Class(superName)
	return c
}

// AddField declares a field.
func (c *Class) AddField(name, descriptor string, access AccessFlags) *Field {
	f := &Field{
		Name:       name,
		Descriptor: descriptor,
		Access:     access,
		nameIndex:  c.Pool.Utf8(name),
		descIndex:  c.Pool.Utf8(descriptor),
	}
	c.Fields = append(c.Fields, f)
	return f
}

// AddMethod declares a method and returns it with an empty code stream.
// MaxLocals starts at the parameter slot count (plus the receiver for
// instance methods); callers that use extra locals raise it.
func (c *Class) AddMethod(name, descriptor string, access AccessFlags) *Method {
	if c.codeIndex == 0 {
		c.codeIndex = c.Pool.Utf8("Code")
	}
	locals, err := ArgumentSlots(descriptor)
	if err != nil {
		locals = 0
	}
	if !access.Has(AccStatic) {
		locals++
	}
	m := &Method{
		Name:       name,
		Descriptor: descriptor,
		Access:     access,
		Code:       bytecode.NewBuilder(),
		MaxLocals:  locals,
		nameIndex:  c.Pool.Utf8(name),
		descIndex:  c.Pool.Utf8(descriptor),
	}
	c.Methods = append(c.Methods, m)
	return m
}

// Field returns the declared field with the given name, or nil.
func (c *Class) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the declared method with the given name and descriptor, or nil.
func (c *Class) Method(name, descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}
