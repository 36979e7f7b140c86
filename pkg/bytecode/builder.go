package bytecode

import "fmt"

// ConstantPool is the part of a class constant pool the encoder needs to
// place integer literals that do not fit an immediate operand.
type ConstantPool interface {
	Integer(v int32) uint16
}

// Builder constructs a single method body.
type Builder struct {
	code     []byte
	depth    int
	maxDepth int
}

// NewBuilder creates an empty instruction stream.
func NewBuilder() *Builder {
	return &Builder{
		code: make([]byte, 0, 64),
	}
}

// Bytes returns the encoded instructions.
func (b *Builder) Bytes() []byte {
	return b.code
}

// Len returns the current code length in bytes.
func (b *Builder) Len() int {
	return len(b.code)
}

// Depth returns the operand-stack depth after the last emitted instruction.
func (b *Builder) Depth() int {
	return b.depth
}

// MaxStack returns the largest operand-stack depth reached so far.
func (b *Builder) MaxStack() int {
	return b.maxDepth
}

func (b *Builder) adjust(delta int) {
	b.depth += delta
	if b.depth < 0 {
		panic(fmt.Sprintf("bytecode: operand stack underflow at offset %d", len(b.code)))
	}
	if b.depth > b.maxDepth {
		b.maxDepth = b.depth
	}
}

func (b *Builder) checkShape(op Opcode, operandBytes int) OpcodeInfo {
	info, ok := opcodeTable[op]
	if !ok {
		panic(fmt.Sprintf("bytecode: unsupported opcode 0x%02x", byte(op)))
	}
	if info.OperandBytes != operandBytes {
		panic(fmt.Sprintf("bytecode: %s takes %d operand bytes, not %d", info.Name, info.OperandBytes, operandBytes))
	}
	return info
}

func (b *Builder) fixed(op Opcode, operandBytes int) {
	info := b.checkShape(op, operandBytes)
	if info.Variable {
		panic(fmt.Sprintf("bytecode: %s needs an explicit stack effect", info.Name))
	}
	b.adjust(info.StackEffect)
}

// Emit appends an opcode with no operands.
func (b *Builder) Emit(op Opcode) {
	b.fixed(op, 0)
	b.code = append(b.code, byte(op))
}

// EmitU1 appends an opcode with an unsigned 8-bit operand.
func (b *Builder) EmitU1(op Opcode, operand uint8) {
	b.fixed(op, 1)
	b.code = append(b.code, byte(op), operand)
}

// EmitInt8 appends an opcode with a signed 8-bit operand.
func (b *Builder) EmitInt8(op Opcode, operand int8) {
	b.fixed(op, 1)
	b.code = append(b.code, byte(op), byte(operand))
}

// EmitInt16 appends an opcode with a signed 16-bit operand (big-endian).
func (b *Builder) EmitInt16(op Opcode, operand int16) {
	b.fixed(op, 2)
	b.code = append(b.code, byte(op), byte(uint16(operand)>>8), byte(operand))
}

// EmitU2 appends an opcode with a 16-bit constant pool index (big-endian).
func (b *Builder) EmitU2(op Opcode, index uint16) {
	b.fixed(op, 2)
	b.code = append(b.code, byte(op), byte(index>>8), byte(index))
}

// EmitLdc pushes the constant at index, using the short LDC form when the
// index fits in one byte.
func (b *Builder) EmitLdc(index uint16) {
	if index <= 0xff {
		b.EmitU1(OpLdc, uint8(index))
		return
	}
	b.EmitU2(OpLdcW, index)
}

// EmitField appends GETSTATIC or PUTSTATIC for a field occupying slots
// stack slots (2 for long and double, 1 otherwise).
func (b *Builder) EmitField(op Opcode, index uint16, slots int) {
	b.checkShape(op, 2)
	switch op {
	case OpGetstatic:
		b.adjust(slots)
	case OpPutstatic:
		b.adjust(-slots)
	default:
		panic(fmt.Sprintf("bytecode: %s is not a static field instruction", op))
	}
	b.code = append(b.code, byte(op), byte(index>>8), byte(index))
}

// EmitInvoke appends an INVOKE* instruction. argSlots and returnSlots come
// from the method descriptor; the receiver of non-static calls is added here.
func (b *Builder) EmitInvoke(op Opcode, index uint16, argSlots, returnSlots int) {
	b.checkShape(op, 2)
	switch op {
	case OpInvokestatic:
		b.adjust(-argSlots)
	case OpInvokevirtual, OpInvokespecial:
		b.adjust(-argSlots - 1)
	default:
		panic(fmt.Sprintf("bytecode: %s is not an invoke instruction", op))
	}
	b.adjust(returnSlots)
	b.code = append(b.code, byte(op), byte(index>>8), byte(index))
}
