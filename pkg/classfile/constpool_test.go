package classfile

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstantPoolDeduplicates(t *testing.T) {
	p := NewConstantPool()
	a := p.Utf8("VAR0")
	b := p.Utf8("VAR0")
	if a != b {
		t.Errorf("Utf8 not deduplicated: %d vs %d", a, b)
	}
	if a != 1 {
		t.Errorf("first index = %d, want 1", a)
	}

	f1 := p.Fieldref("com/x/Color", "VAR0", "Lcom/x/Color;")
	f2 := p.Fieldref("com/x/Color", "VAR0", "Lcom/x/Color;")
	if f1 != f2 {
		t.Errorf("Fieldref not deduplicated: %d vs %d", f1, f2)
	}

	// Same text under different tags must stay distinct.
	s := p.StringConstant("VAR0")
	c := p.Class("VAR0")
	if s == c || s == a || c == a {
		t.Errorf("distinct tags collapsed: utf8=%d string=%d class=%d", a, s, c)
	}
}

func TestConstantPoolOrdering(t *testing.T) {
	p := NewConstantPool()
	idx := p.Methodref("java/lang/Enum", "<init>", "(Ljava/lang/String;I)V")

	want := []ConstantTag{TagUtf8, TagClass, TagUtf8, TagUtf8, TagNameAndType, TagMethodref}
	if p.Count() != len(want)+1 {
		t.Fatalf("Count() = %d, want %d", p.Count(), len(want)+1)
	}
	for i, tag := range want {
		c, ok := p.Get(uint16(i + 1))
		if !ok {
			t.Fatalf("Get(%d) missing", i+1)
		}
		if c.Tag != tag {
			t.Errorf("entry %d tag = %s, want %s", i+1, c.Tag, tag)
		}
	}
	if int(idx) != len(want) {
		t.Errorf("Methodref index = %d, want %d", idx, len(want))
	}
	if _, ok := p.Get(0); ok {
		t.Error("index 0 must be invalid")
	}
}

func TestConstantPoolOverflow(t *testing.T) {
	p := NewConstantPool()
	for i := 0; i < MaxPoolCount-1; i++ {
		if idx := p.Integer(int32(i)); idx == 0 {
			t.Fatalf("overflowed early at %d", i)
		}
	}
	if err := p.Err(); err != nil {
		t.Fatalf("full pool reported %v", err)
	}
	if idx := p.Integer(-1); idx != 0 {
		t.Errorf("index past the limit = %d, want 0", idx)
	}
	if err := p.Err(); !errors.Is(err, ErrConstantPoolOverflow) {
		t.Errorf("Err() = %v, want ErrConstantPoolOverflow", err)
	}
	// Existing entries are still found.
	if idx := p.Integer(7); idx != 8 {
		t.Errorf("Integer(7) = %d, want 8", idx)
	}
}

func TestConstantPoolStringTooLong(t *testing.T) {
	p := NewConstantPool()
	long := make([]byte, 70000)
	for i := range long {
		long[i] = 'a'
	}
	p.Utf8(string(long))
	if err := p.Err(); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("Err() = %v, want ErrStringTooLong", err)
	}
}

func TestConstantPoolInvalidUTF8(t *testing.T) {
	p := NewConstantPool()
	a := p.Utf8("\xff")
	b := p.Utf8("\xfe")
	if a == b {
		t.Fatalf("distinct strings share index %d", a)
	}
	if err := p.Err(); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("Err() = %v, want ErrInvalidUTF8", err)
	}
}

func TestConstantTagString(t *testing.T) {
	if TagNameAndType.String() != "NameAndType" {
		t.Errorf("got %q", TagNameAndType.String())
	}
	if got := ConstantTag(99).String(); got != fmt.Sprintf("ConstantTag(%d)", 99) {
		t.Errorf("got %q", got)
	}
}
