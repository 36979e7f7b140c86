package bytecode

import (
	"errors"
	"fmt"
	"math"
)

// ErrEncodingOverflow is returned when an integer literal falls outside the
// range the encoder supports.
var ErrEncodingOverflow = errors.New("integer literal out of encodable range")

// Thresholds for the immediate push forms. They are one below the true
// int8/int16 maxima, so 127 is pushed with SIPUSH and 32767 via the pool.
const (
	bipushLimit = 127
	sipushLimit = 32767
)

var iconstOps = [...]Opcode{OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5}

// EmitIntLiteral appends the cheapest push of a non-negative int value.
// Values beyond the SIPUSH range are placed in pool as CONSTANT_Integer.
func EmitIntLiteral(b *Builder, pool ConstantPool, value int) error {
	if value < 0 || value > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrEncodingOverflow, value)
	}
	switch {
	case value < len(iconstOps):
		b.Emit(iconstOps[value])
	case value < bipushLimit:
		b.EmitInt8(OpBipush, int8(value))
	case value < sipushLimit:
		b.EmitInt16(OpSipush, int16(value))
	default:
		b.EmitLdc(pool.Integer(int32(value)))
	}
	return nil
}

// IntLiteralSize returns the encoded size in bytes of EmitIntLiteral(value),
// assuming the wide LDC_W form when the value lands in the pool.
func IntLiteralSize(value int) int {
	switch {
	case value >= 0 && value < len(iconstOps):
		return 1
	case value >= 0 && value < bipushLimit:
		return 2
	default:
		return 3
	}
}
