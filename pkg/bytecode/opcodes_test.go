package bytecode

import (
	"strings"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpIconst0, "ICONST_0"},
		{OpBipush, "BIPUSH"},
		{OpSipush, "SIPUSH"},
		{OpLdcW, "LDC_W"},
		{OpAload0, "ALOAD_0"},
		{OpAastore, "AASTORE"},
		{OpGetstatic, "GETSTATIC"},
		{OpInvokestatic, "INVOKESTATIC"},
		{OpAnewarray, "ANEWARRAY"},
		{OpReturn, "RETURN"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xff)
	if op.Known() {
		t.Fatal("0xff should not be known")
	}
	if !strings.HasPrefix(op.Name(), "UNKNOWN_") {
		t.Errorf("Name() = %q, want UNKNOWN_ prefix", op.Name())
	}
}

func TestOpcodeOperandBytes(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpIconst5, 0},
		{OpBipush, 1},
		{OpLdc, 1},
		{OpSipush, 2},
		{OpLdcW, 2},
		{OpPutstatic, 2},
		{OpNew, 2},
		{OpCheckcast, 2},
		{OpAreturn, 0},
	}
	for _, tt := range tests {
		if got := tt.op.OperandBytes(); got != tt.want {
			t.Errorf("%s.OperandBytes() = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestVariableEffectOpcodes(t *testing.T) {
	for _, op := range []Opcode{OpGetstatic, OpPutstatic, OpInvokevirtual, OpInvokespecial, OpInvokestatic} {
		if !op.Info().Variable {
			t.Errorf("%s should have a variable stack effect", op)
		}
	}
	for op, info := range opcodeTable {
		if info.Variable && info.StackEffect != 0 {
			t.Errorf("%s: variable opcode carries fixed effect %d", op, info.StackEffect)
		}
	}
}
