package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Decoding errors.
var (
	ErrTruncated     = errors.New("truncated instruction")
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// Instruction is one decoded instruction.
//
// Operand holds the immediate for BIPUSH/SIPUSH (sign-extended), the local
// slot for ILOAD/ALOAD, and the constant pool index for everything else
// that takes an operand. The implicit operand of the short forms such as
// ICONST_3 or ALOAD_1 is not materialized here.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand int
}

// Size returns the encoded length of the instruction.
func (in Instruction) Size() int {
	return 1 + in.Op.OperandBytes()
}

// Reader walks an instruction stream.
type Reader struct {
	code []byte
	pos  int
}

// NewReader creates a reader over code.
func NewReader(code []byte) *Reader {
	return &Reader{code: code}
}

// Position returns the current read offset.
func (r *Reader) Position() int {
	return r.pos
}

// HasMore returns true if there are more bytes to read.
func (r *Reader) HasMore() bool {
	return r.pos < len(r.code)
}

// Next decodes the instruction at the current position.
func (r *Reader) Next() (Instruction, error) {
	if !r.HasMore() {
		return Instruction{}, ErrTruncated
	}
	in := Instruction{Offset: r.pos, Op: Opcode(r.code[r.pos])}
	info, ok := opcodeTable[in.Op]
	if !ok {
		return Instruction{}, fmt.Errorf("%w 0x%02x at offset %d", ErrUnknownOpcode, byte(in.Op), r.pos)
	}
	end := r.pos + 1 + info.OperandBytes
	if end > len(r.code) {
		return Instruction{}, fmt.Errorf("%w: %s at offset %d", ErrTruncated, info.Name, r.pos)
	}
	operand := r.code[r.pos+1 : end]
	switch {
	case in.Op == OpBipush:
		in.Operand = int(int8(operand[0]))
	case in.Op == OpSipush:
		in.Operand = int(int16(binary.BigEndian.Uint16(operand)))
	case info.OperandBytes == 1:
		in.Operand = int(operand[0])
	case info.OperandBytes == 2:
		in.Operand = int(binary.BigEndian.Uint16(operand))
	}
	r.pos = end
	return in, nil
}

// Decode splits code into instructions.
func Decode(code []byte) ([]Instruction, error) {
	r := NewReader(code)
	var out []Instruction
	for r.HasMore() {
		in, err := r.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// IntLiteral returns the int an instruction pushes when it is one of the
// literal forms produced by EmitIntLiteral. Pool-backed literals are
// resolved through lookup. ok is false for any other instruction.
func IntLiteral(in Instruction, lookup func(index uint16) (int32, bool)) (value int32, ok bool) {
	switch in.Op {
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		return int32(in.Op) - int32(OpIconst0), true
	case OpBipush, OpSipush:
		return int32(in.Operand), true
	case OpLdc, OpLdcW:
		if lookup == nil {
			return 0, false
		}
		return lookup(uint16(in.Operand))
	}
	return 0, false
}
