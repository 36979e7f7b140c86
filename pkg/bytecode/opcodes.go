package bytecode

import "fmt"

// Opcode is a single JVM instruction opcode.
//
// Only the subset needed to build enum classes by hand is defined. The
// values match the JVM specification, chapter 6.
type Opcode byte

// Constants
const (
	OpNop        Opcode = 0x00 // no operation
	OpAconstNull Opcode = 0x01 // push null
	OpIconstM1   Opcode = 0x02 // push int -1
	OpIconst0    Opcode = 0x03 // push int 0
	OpIconst1    Opcode = 0x04 // push int 1
	OpIconst2    Opcode = 0x05 // push int 2
	OpIconst3    Opcode = 0x06 // push int 3
	OpIconst4    Opcode = 0x07 // push int 4
	OpIconst5    Opcode = 0x08 // push int 5
	OpBipush     Opcode = 0x10 // push sign-extended byte
	OpSipush     Opcode = 0x11 // push sign-extended short
	OpLdc        Opcode = 0x12 // push constant (8-bit pool index)
	OpLdcW       Opcode = 0x13 // push constant (16-bit pool index)
)

// Loads
const (
	OpIload  Opcode = 0x15 // push int local (8-bit index)
	OpAload  Opcode = 0x19 // push reference local (8-bit index)
	OpIload0 Opcode = 0x1a
	OpIload1 Opcode = 0x1b
	OpIload2 Opcode = 0x1c
	OpIload3 Opcode = 0x1d
	OpAload0 Opcode = 0x2a
	OpAload1 Opcode = 0x2b
	OpAload2 Opcode = 0x2c
	OpAload3 Opcode = 0x2d
)

// Arrays and stack
const (
	OpAastore     Opcode = 0x53 // store reference into array
	OpPop         Opcode = 0x57 // discard top of stack
	OpDup         Opcode = 0x59 // duplicate top of stack
	OpArraylength Opcode = 0xbe // push array length
)

// Returns
const (
	OpIreturn Opcode = 0xac
	OpAreturn Opcode = 0xb0
	OpReturn  Opcode = 0xb1
)

// Fields and invocation (16-bit pool index operand)
const (
	OpGetstatic     Opcode = 0xb2
	OpPutstatic     Opcode = 0xb3
	OpInvokevirtual Opcode = 0xb6
	OpInvokespecial Opcode = 0xb7
	OpInvokestatic  Opcode = 0xb8
)

// Object creation and type checks (16-bit pool index operand)
const (
	OpNew       Opcode = 0xbb
	OpAnewarray Opcode = 0xbd
	OpCheckcast Opcode = 0xc0
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // mnemonic
	OperandBytes int    // number of operand bytes following the opcode
	StackEffect  int    // net effect on the operand stack
	Variable     bool   // effect depends on a descriptor; StackEffect is unused
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop:        {"NOP", 0, 0, false},
	OpAconstNull: {"ACONST_NULL", 0, 1, false},
	OpIconstM1:   {"ICONST_M1", 0, 1, false},
	OpIconst0:    {"ICONST_0", 0, 1, false},
	OpIconst1:    {"ICONST_1", 0, 1, false},
	OpIconst2:    {"ICONST_2", 0, 1, false},
	OpIconst3:    {"ICONST_3", 0, 1, false},
	OpIconst4:    {"ICONST_4", 0, 1, false},
	OpIconst5:    {"ICONST_5", 0, 1, false},
	OpBipush:     {"BIPUSH", 1, 1, false},
	OpSipush:     {"SIPUSH", 2, 1, false},
	OpLdc:        {"LDC", 1, 1, false},
	OpLdcW:       {"LDC_W", 2, 1, false},

	OpIload:  {"ILOAD", 1, 1, false},
	OpAload:  {"ALOAD", 1, 1, false},
	OpIload0: {"ILOAD_0", 0, 1, false},
	OpIload1: {"ILOAD_1", 0, 1, false},
	OpIload2: {"ILOAD_2", 0, 1, false},
	OpIload3: {"ILOAD_3", 0, 1, false},
	OpAload0: {"ALOAD_0", 0, 1, false},
	OpAload1: {"ALOAD_1", 0, 1, false},
	OpAload2: {"ALOAD_2", 0, 1, false},
	OpAload3: {"ALOAD_3", 0, 1, false},

	OpAastore:     {"AASTORE", 0, -3, false},
	OpPop:         {"POP", 0, -1, false},
	OpDup:         {"DUP", 0, 1, false},
	OpArraylength: {"ARRAYLENGTH", 0, 0, false},

	OpIreturn: {"IRETURN", 0, -1, false},
	OpAreturn: {"ARETURN", 0, -1, false},
	OpReturn:  {"RETURN", 0, 0, false},

	OpGetstatic:     {"GETSTATIC", 2, 0, true},
	OpPutstatic:     {"PUTSTATIC", 2, 0, true},
	OpInvokevirtual: {"INVOKEVIRTUAL", 2, 0, true},
	OpInvokespecial: {"INVOKESPECIAL", 2, 0, true},
	OpInvokestatic:  {"INVOKESTATIC", 2, 0, true},

	OpNew:       {"NEW", 2, 1, false},
	OpAnewarray: {"ANEWARRAY", 2, 0, false}, // pops count, pushes array
	OpCheckcast: {"CHECKCAST", 2, 0, false},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Known reports whether op is part of the supported subset.
func (op Opcode) Known() bool {
	_, ok := opcodeTable[op]
	return ok
}

// Name returns the mnemonic for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}
