package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of code, one instruction per line.
// Operands that index the constant pool are rendered through describe when
// it is non-nil, e.g. "#12 com/x/Color.VAR0".
func Disassemble(code []byte, describe func(index uint16) string) string {
	var sb strings.Builder
	r := NewReader(code)
	for r.HasMore() {
		in, err := r.Next()
		if err != nil {
			fmt.Fprintf(&sb, "%04d  <%v>\n", r.Position(), err)
			break
		}
		sb.WriteString(formatInstruction(in, describe))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatInstruction(in Instruction, describe func(index uint16) string) string {
	info := in.Op.Info()
	switch {
	case info.OperandBytes == 0:
		return fmt.Sprintf("%04d  %s", in.Offset, info.Name)
	case in.Op == OpBipush || in.Op == OpSipush || in.Op == OpIload || in.Op == OpAload:
		return fmt.Sprintf("%04d  %s %d", in.Offset, info.Name, in.Operand)
	case describe != nil:
		return fmt.Sprintf("%04d  %s #%d %s", in.Offset, info.Name, in.Operand, describe(uint16(in.Operand)))
	default:
		return fmt.Sprintf("%04d  %s #%d", in.Offset, info.Name, in.Operand)
	}
}
