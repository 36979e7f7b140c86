package classfile

import (
	"fmt"
	"unicode/utf8"
)

// ConstantTag identifies the kind of a constant pool entry.
type ConstantTag uint8

// Constant pool tags (JVMS §4.4).
const (
	TagUtf8               ConstantTag = 1
	TagInteger            ConstantTag = 3
	TagFloat              ConstantTag = 4
	TagLong               ConstantTag = 5
	TagDouble             ConstantTag = 6
	TagClass              ConstantTag = 7
	TagString             ConstantTag = 8
	TagFieldref           ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
	TagMethodHandle       ConstantTag = 15
	TagMethodType         ConstantTag = 16
	TagDynamic            ConstantTag = 17
	TagInvokeDynamic      ConstantTag = 18
	TagModule             ConstantTag = 19
	TagPackage            ConstantTag = 20
)

// String returns the JVMS name of the tag.
func (t ConstantTag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	default:
		return fmt.Sprintf("ConstantTag(%d)", uint8(t))
	}
}

// Constant is a single constant pool entry. Which fields are meaningful
// depends on Tag: Utf8 for TagUtf8, Int for TagInteger, Ref1 for Class and
// String (the Utf8 index), Ref1/Ref2 for member refs (class, NameAndType)
// and NameAndType (name, descriptor).
type Constant struct {
	Tag  ConstantTag
	Utf8 string
	Int  int32
	Ref1 uint16
	Ref2 uint16
}

type constKey struct {
	tag  ConstantTag
	utf8 string
	num  int32
	ref1 uint16
	ref2 uint16
}

// MaxPoolCount is the largest constant_pool_count a class file can carry.
// Valid indices run from 1 to MaxPoolCount-1.
const MaxPoolCount = 65535

// ConstantPool is an insertion-ordered, deduplicating constant pool. Entries
// are numbered from 1 in the order they are first added, which makes
// serialization deterministic for a deterministic sequence of additions.
type ConstantPool struct {
	entries  []Constant // entries[0] is index 1
	index    map[constKey]uint16
	overflow bool
	tooLong  string
	badUTF8  string
}

// NewConstantPool creates an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries: make([]Constant, 0, 32),
		index:   make(map[constKey]uint16),
	}
}

func (p *ConstantPool) add(c Constant) uint16 {
	key := constKey{tag: c.Tag, utf8: c.Utf8, num: c.Int, ref1: c.Ref1, ref2: c.Ref2}
	if idx, ok := p.index[key]; ok {
		return idx
	}
	if len(p.entries)+1 >= MaxPoolCount {
		p.overflow = true
		return 0
	}
	p.entries = append(p.entries, c)
	idx := uint16(len(p.entries))
	p.index[key] = idx
	return idx
}

// Utf8 adds a CONSTANT_Utf8 entry.
func (p *ConstantPool) Utf8(s string) uint16 {
	if modifiedUTF8Len(s) > 0xffff && p.tooLong == "" {
		p.tooLong = s
	}
	// Invalid bytes would all encode as U+FFFD and collide.
	if !utf8.ValidString(s) && p.badUTF8 == "" {
		p.badUTF8 = s
	}
	return p.add(Constant{Tag: TagUtf8, Utf8: s})
}

// Integer adds a CONSTANT_Integer entry.
func (p *ConstantPool) Integer(v int32) uint16 {
	return p.add(Constant{Tag: TagInteger, Int: v})
}

// Class adds a CONSTANT_Class entry for an internal name ("com/x/Color")
// or an array descriptor ("[Lcom/x/Color;").
func (p *ConstantPool) Class(name string) uint16 {
	return p.add(Constant{Tag: TagClass, Ref1: p.Utf8(name)})
}

// StringConstant adds a CONSTANT_String entry.
func (p *ConstantPool) StringConstant(s string) uint16 {
	return p.add(Constant{Tag: TagString, Ref1: p.Utf8(s)})
}

// NameAndType adds a CONSTANT_NameAndType entry.
func (p *ConstantPool) NameAndType(name, descriptor string) uint16 {
	n := p.Utf8(name)
	d := p.Utf8(descriptor)
	return p.add(Constant{Tag: TagNameAndType, Ref1: n, Ref2: d})
}

// Fieldref adds a CONSTANT_Fieldref entry.
func (p *ConstantPool) Fieldref(owner, name, descriptor string) uint16 {
	c := p.Class(owner)
	nt := p.NameAndType(name, descriptor)
	return p.add(Constant{Tag: TagFieldref, Ref1: c, Ref2: nt})
}

// Methodref adds a CONSTANT_Methodref entry.
func (p *ConstantPool) Methodref(owner, name, descriptor string) uint16 {
	c := p.Class(owner)
	nt := p.NameAndType(name, descriptor)
	return p.add(Constant{Tag: TagMethodref, Ref1: c, Ref2: nt})
}

// Count returns the constant_pool_count value: entries plus one.
func (p *ConstantPool) Count() int {
	return len(p.entries) + 1
}

// Get returns the entry at a 1-based index.
func (p *ConstantPool) Get(index uint16) (Constant, bool) {
	if index == 0 || int(index) > len(p.entries) {
		return Constant{}, false
	}
	return p.entries[index-1], true
}

// Err reports a pool that can no longer be serialized.
func (p *ConstantPool) Err() error {
	if p.overflow {
		return fmt.Errorf("%w: more than %d entries", ErrConstantPoolOverflow, MaxPoolCount-1)
	}
	if p.tooLong != "" {
		return fmt.Errorf("%w: %.32q...", ErrStringTooLong, p.tooLong)
	}
	if p.badUTF8 != "" {
		return fmt.Errorf("%w: %q", ErrInvalidUTF8, p.badUTF8)
	}
	return nil
}

func (p *ConstantPool) writeTo(w *writer) {
	w.u2(uint16(p.Count()))
	for _, c := range p.entries {
		w.u1(uint8(c.Tag))
		switch c.Tag {
		case TagUtf8:
			enc := appendModifiedUTF8(nil, c.Utf8)
			w.u2(uint16(len(enc)))
			w.bytes(enc)
		case TagInteger:
			w.u4(uint32(c.Int))
		case TagClass, TagString:
			w.u2(c.Ref1)
		case TagFieldref, TagMethodref, TagNameAndType:
			w.u2(c.Ref1)
			w.u2(c.Ref2)
		}
	}
}
