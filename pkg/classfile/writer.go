package classfile

import (
	"bytes"
	"fmt"
	"io"
)

type writer struct {
	buf *bytes.Buffer
}

func (w *writer) u1(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) u2(v uint16) {
	w.buf.WriteByte(byte(v >> 8))
	w.buf.WriteByte(byte(v))
}

func (w *writer) u4(v uint32) {
	w.buf.WriteByte(byte(v >> 24))
	w.buf.WriteByte(byte(v >> 16))
	w.buf.WriteByte(byte(v >> 8))
	w.buf.WriteByte(byte(v))
}

func (w *writer) bytes(b []byte) {
	w.buf.Write(b)
}

// Validate checks the class against the format limits the serializer
// cannot represent.
func (c *Class) Validate() error {
	if err := c.Pool.Err(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	if len(c.Fields) > MaxMembers || len(c.Methods) > MaxMembers {
		return fmt.Errorf("%s: %w: %d fields, %d methods", c.Name, ErrTooManyMembers, len(c.Fields), len(c.Methods))
	}

	type member struct{ name, desc string }
	seen := make(map[member]bool, len(c.Fields))
	for _, f := range c.Fields {
		if _, err := FieldSlots(f.Descriptor); err != nil {
			return fmt.Errorf("%s.%s: %w", c.Name, f.Name, err)
		}
		k := member{f.Name, f.Descriptor}
		if seen[k] {
			return fmt.Errorf("%s: %w: field %s %s", c.Name, ErrDuplicateMember, f.Name, f.Descriptor)
		}
		seen[k] = true
	}

	seen = make(map[member]bool, len(c.Methods))
	for _, m := range c.Methods {
		if _, err := ArgumentSlots(m.Descriptor); err != nil {
			return fmt.Errorf("%s.%s: %w", c.Name, m.Name, err)
		}
		k := member{m.Name, m.Descriptor}
		if seen[k] {
			return fmt.Errorf("%s: %w: method %s%s", c.Name, ErrDuplicateMember, m.Name, m.Descriptor)
		}
		seen[k] = true

		switch n := m.Code.Len(); {
		case n == 0:
			return fmt.Errorf("%s.%s: %w", c.Name, m.Name, ErrEmptyCode)
		case n > MaxCodeLength:
			return fmt.Errorf("%s.%s: %w: %d bytes", c.Name, m.Name, ErrCodeTooLarge, n)
		}
		if m.Code.MaxStack() > MaxStackDepth {
			return fmt.Errorf("%s.%s: %w", c.Name, m.Name, ErrStackTooDeep)
		}
		if m.MaxLocals > MaxLocalsCount {
			return fmt.Errorf("%s.%s: max_locals %d out of range", c.Name, m.Name, m.MaxLocals)
		}
	}
	return nil
}

// Bytes serializes the class. Identical classes always produce identical
// bytes.
func (c *Class) Bytes() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := &writer{buf: &buf}

	// Header
	w.u4(Magic)
	w.u2(MinorVersion)
	w.u2(MajorVersion)

	c.Pool.writeTo(w)

	w.u2(uint16(c.Access))
	w.u2(c.thisIndex)
	w.u2(c.superIndex)
	w.u2(0) // interfaces_count

	w.u2(uint16(len(c.Fields)))
	for _, f := range c.Fields {
		w.u2(uint16(f.Access))
		w.u2(f.nameIndex)
		w.u2(f.descIndex)
		w.u2(0) // attributes_count
	}

	w.u2(uint16(len(c.Methods)))
	for _, m := range c.Methods {
		code := m.Code.Bytes()
		w.u2(uint16(m.Access))
		w.u2(m.nameIndex)
		w.u2(m.descIndex)
		w.u2(1) // attributes_count: Code

		// Code attribute: max_stack(2) max_locals(2) code_length(4) code
		// exception_table_length(2) attributes_count(2)
		w.u2(c.codeIndex)
		w.u4(uint32(12 + len(code)))
		w.u2(uint16(m.Code.MaxStack()))
		w.u2(uint16(m.MaxLocals))
		w.u4(uint32(len(code)))
		w.bytes(code)
		w.u2(0)
		w.u2(0)
	}

	w.u2(0) // class attributes_count

	return buf.Bytes(), nil
}

// WriteTo writes the serialized class to out.
func (c *Class) WriteTo(out io.Writer) (int64, error) {
	data, err := c.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := out.Write(data)
	return int64(n), err
}
