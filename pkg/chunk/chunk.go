// Package chunk defines the bytecode container: the opcode stream, its
// parallel source-line table, and the constant pool.
package chunk

import "github.com/kristofer/loxvm/pkg/value"

// OpCode is a single bytecode instruction's operation.
type OpCode byte

const (
	OpConstant OpCode = iota // 1-byte operand: constant pool index
	OpConstantLong           // 3-byte little-endian operand: constant pool index
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal    // 1-byte operand: stack slot
	OpSetLocal    // 1-byte operand: stack slot
	OpGetGlobal   // 1-byte operand: constant pool index of the name
	OpDefineGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpReturn
)

// String names an opcode for disassembly and trace logging.
func (op OpCode) String() string {
	switch op {
	case OpConstant:
		return "OP_CONSTANT"
	case OpConstantLong:
		return "OP_CONSTANT_LONG"
	case OpNil:
		return "OP_NIL"
	case OpTrue:
		return "OP_TRUE"
	case OpFalse:
		return "OP_FALSE"
	case OpPop:
		return "OP_POP"
	case OpGetLocal:
		return "OP_GET_LOCAL"
	case OpSetLocal:
		return "OP_SET_LOCAL"
	case OpGetGlobal:
		return "OP_GET_GLOBAL"
	case OpDefineGlobal:
		return "OP_DEFINE_GLOBAL"
	case OpSetGlobal:
		return "OP_SET_GLOBAL"
	case OpEqual:
		return "OP_EQUAL"
	case OpGreater:
		return "OP_GREATER"
	case OpLess:
		return "OP_LESS"
	case OpAdd:
		return "OP_ADD"
	case OpSubtract:
		return "OP_SUBTRACT"
	case OpMultiply:
		return "OP_MULTIPLY"
	case OpDivide:
		return "OP_DIVIDE"
	case OpNot:
		return "OP_NOT"
	case OpNegate:
		return "OP_NEGATE"
	case OpPrint:
		return "OP_PRINT"
	case OpReturn:
		return "OP_RETURN"
	default:
		return "OP_UNKNOWN"
	}
}

// MaxConstantsShort is the largest constant pool index addressable by
// OP_CONSTANT's 1-byte operand. Past this the compiler switches to
// OP_CONSTANT_LONG's 3-byte operand (see design note (b) and
// SPEC_FULL.md §4).
const MaxConstantsShort = 255

// Chunk is a compiled unit: a growable opcode byte stream, a parallel
// line-number array of the same length, and a constant pool. A Chunk
// owns its arrays; operands that reference constants are indices, never
// pointers.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants value.Array
}

// New returns an empty Chunk.
func New() *Chunk { return &Chunk{} }

// Write appends one opcode/operand byte, tagging it with the source
// line that produced it.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp is Write for an OpCode, for call-site readability.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index —
// the address later instructions reference.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants.Write(v)
	return c.Constants.Len() - 1
}
