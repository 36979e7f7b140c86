// Package bytecode builds and decodes JVM instruction streams.
//
// The encoder covers the instruction subset an enum class needs: integer
// and constant pushes, static field access, object and array creation,
// invocation, and returns. Operands are big-endian as in the class file
// format.
//
// # Components
//
//   - Opcodes: the supported opcode table with operand widths and fixed
//     stack effects. Field and invoke instructions have descriptor-dependent
//     effects and take explicit slot counts.
//
//   - Builder: an append-only code array paired with a running
//     operand-stack depth and the maximum depth seen, which becomes the
//     method's max_stack.
//
//   - EmitIntLiteral: picks ICONST_n, BIPUSH, SIPUSH or a pool constant for
//     a non-negative int, whichever is cheapest under the thresholds in
//     literal.go.
//
//   - Reader, Decode and Disassemble: walk an encoded stream, used by the
//     class loader simulator and by tests.
package bytecode
