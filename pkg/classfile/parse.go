package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Read errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic  = errors.New("invalid magic number: expected CAFEBABE")
	ErrUnexpectedEOF = errors.New("unexpected end of class data")
	ErrBadConstant   = errors.New("bad constant pool reference")
	ErrTrailingData  = errors.New("trailing bytes after class data")
)

// ---------------------------------------------------------------------------
// ClassFile: parsed, read-only view
// ---------------------------------------------------------------------------

// ClassFile is a decoded class file.
type ClassFile struct {
	Minor, Major uint16
	Constants    []Constant // index-aligned; Constants[0] is unused
	Access       AccessFlags
	ThisClass    string
	SuperClass   string
	Interfaces   []string
	Fields       []FieldInfo
	Methods      []MethodInfo
}

// FieldInfo is a decoded field_info.
type FieldInfo struct {
	Access     AccessFlags
	Name       string
	Descriptor string
}

// MethodInfo is a decoded method_info. Code is nil for methods without a
// Code attribute.
type MethodInfo struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	MaxStack   int
	MaxLocals  int
	Code       []byte
}

// MemberRef is a resolved Fieldref or Methodref.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
}

// Field returns the field with the given name, or nil.
func (cf *ClassFile) Field(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// Method returns the method with the given name and descriptor, or nil.
func (cf *ClassFile) Method(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

func (cf *ClassFile) constant(index uint16, tag ConstantTag) (Constant, error) {
	if index == 0 || int(index) >= len(cf.Constants) {
		return Constant{}, fmt.Errorf("%w: index %d", ErrBadConstant, index)
	}
	c := cf.Constants[index]
	if c.Tag != tag {
		return Constant{}, fmt.Errorf("%w: index %d is %s, want %s", ErrBadConstant, index, c.Tag, tag)
	}
	return c, nil
}

// Utf8At returns the CONSTANT_Utf8 at index.
func (cf *ClassFile) Utf8At(index uint16) (string, error) {
	c, err := cf.constant(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Utf8, nil
}

// ClassAt returns the name of the CONSTANT_Class at index.
func (cf *ClassFile) ClassAt(index uint16) (string, error) {
	c, err := cf.constant(index, TagClass)
	if err != nil {
		return "", err
	}
	return cf.Utf8At(c.Ref1)
}

// StringAt returns the value of the CONSTANT_String at index.
func (cf *ClassFile) StringAt(index uint16) (string, error) {
	c, err := cf.constant(index, TagString)
	if err != nil {
		return "", err
	}
	return cf.Utf8At(c.Ref1)
}

// IntegerAt returns the value of the CONSTANT_Integer at index.
func (cf *ClassFile) IntegerAt(index uint16) (int32, error) {
	c, err := cf.constant(index, TagInteger)
	if err != nil {
		return 0, err
	}
	return c.Int, nil
}

// Tag returns the tag of the constant at index, or 0 when out of range.
func (cf *ClassFile) Tag(index uint16) ConstantTag {
	if index == 0 || int(index) >= len(cf.Constants) {
		return 0
	}
	return cf.Constants[index].Tag
}

// MemberAt resolves a Fieldref, Methodref or InterfaceMethodref.
func (cf *ClassFile) MemberAt(index uint16) (MemberRef, error) {
	tag := cf.Tag(index)
	if tag != TagFieldref && tag != TagMethodref && tag != TagInterfaceMethodref {
		return MemberRef{}, fmt.Errorf("%w: index %d is not a member ref", ErrBadConstant, index)
	}
	ref := cf.Constants[index]
	owner, err := cf.ClassAt(ref.Ref1)
	if err != nil {
		return MemberRef{}, err
	}
	nt, err := cf.constant(ref.Ref2, TagNameAndType)
	if err != nil {
		return MemberRef{}, err
	}
	name, err := cf.Utf8At(nt.Ref1)
	if err != nil {
		return MemberRef{}, err
	}
	desc, err := cf.Utf8At(nt.Ref2)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc}, nil
}

// Describe renders the constant at index for disassembly listings.
func (cf *ClassFile) Describe(index uint16) string {
	switch cf.Tag(index) {
	case TagClass:
		s, _ := cf.ClassAt(index)
		return s
	case TagString:
		s, _ := cf.StringAt(index)
		return fmt.Sprintf("%q", s)
	case TagInteger:
		v, _ := cf.IntegerAt(index)
		return fmt.Sprintf("int %d", v)
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		ref, err := cf.MemberAt(index)
		if err != nil {
			return "?"
		}
		return ref.Owner + "." + ref.Name + ":" + ref.Descriptor
	default:
		return "?"
	}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%w at offset %d", ErrUnexpectedEOF, r.pos)
	}
	return nil
}

func (r *reader) u1() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	magic, err := r.u4()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	cf := &ClassFile{}
	if cf.Minor, err = r.u2(); err != nil {
		return nil, err
	}
	if cf.Major, err = r.u2(); err != nil {
		return nil, err
	}
	if err := cf.readConstants(r); err != nil {
		return nil, err
	}

	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	cf.Access = AccessFlags(access)

	this, err := r.u2()
	if err != nil {
		return nil, err
	}
	if cf.ThisClass, err = cf.ClassAt(this); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	super, err := r.u2()
	if err != nil {
		return nil, err
	}
	if super != 0 {
		if cf.SuperClass, err = cf.ClassAt(super); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	nifaces, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(nifaces); i++ {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := cf.ClassAt(idx)
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	if err := cf.readFields(r); err != nil {
		return nil, err
	}
	if err := cf.readMethods(r); err != nil {
		return nil, err
	}
	if err := cf.checkMembers(); err != nil {
		return nil, err
	}
	if err := skipAttributes(r); err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(r.data)-r.pos)
	}
	return cf, nil
}

func (cf *ClassFile) readConstants(r *reader) error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: constant_pool_count is 0", ErrBadConstant)
	}
	cf.Constants = make([]Constant, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return err
		}
		c := Constant{Tag: ConstantTag(tag)}
		switch c.Tag {
		case TagUtf8:
			n, err := r.u2()
			if err != nil {
				return err
			}
			raw, err := r.take(int(n))
			if err != nil {
				return err
			}
			if c.Utf8, err = decodeModifiedUTF8(raw); err != nil {
				return fmt.Errorf("constant %d: %w", i, err)
			}
		case TagInteger, TagFloat:
			v, err := r.u4()
			if err != nil {
				return err
			}
			c.Int = int32(v)
		case TagLong, TagDouble:
			if _, err := r.take(8); err != nil {
				return err
			}
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			if c.Ref1, err = r.u2(); err != nil {
				return err
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			if c.Ref1, err = r.u2(); err != nil {
				return err
			}
			if c.Ref2, err = r.u2(); err != nil {
				return err
			}
		case TagMethodHandle:
			kind, err := r.u1()
			if err != nil {
				return err
			}
			c.Int = int32(kind)
			if c.Ref1, err = r.u2(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstant, tag, i)
		}
		cf.Constants[i] = c
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++ // eight-byte constants take two slots
		}
	}
	return nil
}

func (cf *ClassFile) memberHeader(r *reader) (AccessFlags, string, string, error) {
	access, err := r.u2()
	if err != nil {
		return 0, "", "", err
	}
	ni, err := r.u2()
	if err != nil {
		return 0, "", "", err
	}
	di, err := r.u2()
	if err != nil {
		return 0, "", "", err
	}
	name, err := cf.Utf8At(ni)
	if err != nil {
		return 0, "", "", err
	}
	desc, err := cf.Utf8At(di)
	if err != nil {
		return 0, "", "", err
	}
	return AccessFlags(access), name, desc, nil
}

func (cf *ClassFile) readFields(r *reader) error {
	n, err := r.u2()
	if err != nil {
		return err
	}
	cf.Fields = make([]FieldInfo, 0, n)
	for i := 0; i < int(n); i++ {
		access, name, desc, err := cf.memberHeader(r)
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		if err := skipAttributes(r); err != nil {
			return err
		}
		cf.Fields = append(cf.Fields, FieldInfo{Access: access, Name: name, Descriptor: desc})
	}
	return nil
}

func (cf *ClassFile) readMethods(r *reader) error {
	n, err := r.u2()
	if err != nil {
		return err
	}
	cf.Methods = make([]MethodInfo, 0, n)
	for i := 0; i < int(n); i++ {
		access, name, desc, err := cf.memberHeader(r)
		if err != nil {
			return fmt.Errorf("method %d: %w", i, err)
		}
		m := MethodInfo{Access: access, Name: name, Descriptor: desc}

		nattrs, err := r.u2()
		if err != nil {
			return err
		}
		for j := 0; j < int(nattrs); j++ {
			ni, err := r.u2()
			if err != nil {
				return err
			}
			length, err := r.u4()
			if err != nil {
				return err
			}
			body, err := r.take(int(length))
			if err != nil {
				return err
			}
			if attr, _ := cf.Utf8At(ni); attr == "Code" {
				if err := parseCode(body, &m); err != nil {
					return fmt.Errorf("%s%s: %w", name, desc, err)
				}
			}
		}
		cf.Methods = append(cf.Methods, m)
	}
	return nil
}

// checkMembers rejects two fields or two methods sharing a name and
// descriptor.
func (cf *ClassFile) checkMembers() error {
	type member struct{ name, desc string }
	fields := make(map[member]bool, len(cf.Fields))
	for _, f := range cf.Fields {
		k := member{f.Name, f.Descriptor}
		if fields[k] {
			return fmt.Errorf("%s: %w: field %s %s", cf.ThisClass, ErrDuplicateMember, f.Name, f.Descriptor)
		}
		fields[k] = true
	}
	methods := make(map[member]bool, len(cf.Methods))
	for _, m := range cf.Methods {
		k := member{m.Name, m.Descriptor}
		if methods[k] {
			return fmt.Errorf("%s: %w: method %s%s", cf.ThisClass, ErrDuplicateMember, m.Name, m.Descriptor)
		}
		methods[k] = true
	}
	return nil
}

func parseCode(body []byte, m *MethodInfo) error {
	r := &reader{data: body}
	maxStack, err := r.u2()
	if err != nil {
		return err
	}
	maxLocals, err := r.u2()
	if err != nil {
		return err
	}
	n, err := r.u4()
	if err != nil {
		return err
	}
	code, err := r.take(int(n))
	if err != nil {
		return err
	}
	m.MaxStack = int(maxStack)
	m.MaxLocals = int(maxLocals)
	m.Code = code
	return nil
}

func skipAttributes(r *reader) error {
	n, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		if _, err := r.u2(); err != nil {
			return err
		}
		length, err := r.u4()
		if err != nil {
			return err
		}
		if _, err := r.take(int(length)); err != nil {
			return err
		}
	}
	return nil
}
