package enumgen

import (
	"fmt"
	"strings"

	"github.com/chazu/enumforge/pkg/bytecode"
	"github.com/chazu/enumforge/pkg/classfile"
)

// Listing disassembles every method of a generated module, resolving
// constant pool operands against the module's own pool.
func Listing(m Module) (string, error) {
	cf, err := classfile.Parse(m.Bytes)
	if err != nil {
		return "", fmt.Errorf("%s: %w", m.Name, err)
	}
	var sb strings.Builder
	for _, meth := range cf.Methods {
		fmt.Fprintf(&sb, "%s%s stack=%d locals=%d\n", meth.Name, meth.Descriptor, meth.MaxStack, meth.MaxLocals)
		sb.WriteString(bytecode.Disassemble(meth.Code, cf.Describe))
	}
	return sb.String(), nil
}
