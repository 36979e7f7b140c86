package enumgen

import (
	"math"

	"github.com/chazu/enumforge/pkg/bytecode"
	"github.com/chazu/enumforge/pkg/classfile"
)

// DefaultChunkSize is the number of elements each auxiliary init routine
// constructs.
const DefaultChunkSize = 1000

// Worst-case code bytes per element in an init routine:
//
//	new dup ldc_w <push i> invokespecial putstatic     pass 1
//	getstatic <push i> getstatic aastore               pass 2
//
// and the fixed cost of the inline <clinit>: <push N> anewarray putstatic
// return. Ordinals are costed at the widest literal form.
var (
	literalCost = bytecode.IntLiteralSize(math.MaxInt32)

	elementCost = instructionBytes(bytecode.OpNew, bytecode.OpDup, bytecode.OpLdcW,
		bytecode.OpInvokespecial, bytecode.OpPutstatic,
		bytecode.OpGetstatic, bytecode.OpGetstatic, bytecode.OpAastore) + 2*literalCost

	routineOverhead = literalCost + instructionBytes(bytecode.OpAnewarray, bytecode.OpPutstatic, bytecode.OpReturn)
)

// MaxChunkSize is the largest chunk whose routine always fits in one
// method body.
var MaxChunkSize = (classfile.MaxCodeLength - routineOverhead) / elementCost

func instructionBytes(ops ...bytecode.Opcode) int {
	n := 0
	for _, op := range ops {
		n += 1 + op.OperandBytes()
	}
	return n
}

// EffectiveChunkSize clamps a requested chunk size to MaxChunkSize.
// Non-positive sizes select DefaultChunkSize.
func EffectiveChunkSize(requested int) int {
	switch {
	case requested <= 0:
		return DefaultChunkSize
	case requested > MaxChunkSize:
		return MaxChunkSize
	default:
		return requested
	}
}

// Partition is the half-open ordinal range [From, To) handled by the
// auxiliary class with the same Index.
type Partition struct {
	Index int
	From  int
	To    int
}

// Len returns the number of elements in the partition.
func (p Partition) Len() int { return p.To - p.From }

// Plan splits N elements into contiguous, ordered chunks.
type Plan struct {
	Total      int
	ChunkSize  int
	Partitions []Partition
}

// NewPlan partitions total elements into chunks of at most chunkSize.
// The chunk size must already be effective (see EffectiveChunkSize).
func NewPlan(total, chunkSize int) Plan {
	p := Plan{Total: total, ChunkSize: chunkSize}
	for k, from := 0, 0; from < total; k, from = k+1, from+chunkSize {
		to := from + chunkSize
		if to > total {
			to = total
		}
		p.Partitions = append(p.Partitions, Partition{Index: k, From: from, To: to})
	}
	return p
}

// Inline reports whether every element fits in <clinit> directly.
func (p Plan) Inline() bool {
	return p.Total <= p.ChunkSize
}
