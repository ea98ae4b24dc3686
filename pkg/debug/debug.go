// Package debug implements the bytecode disassembler: a read-only
// observer of a chunk's instruction stream. Per spec.md §1 this is an
// external collaborator, not part of the compiler/VM core — pkg/compiler
// does not import it; the CLI's `lox disasm` subcommand and pkg/vm's
// optional trace logging are its only callers.
package debug

import (
	"fmt"
	"strings"

	"github.com/kristofer/loxvm/pkg/chunk"
)

// Disassemble writes a human-readable dump of every instruction in c,
// labeled name, to a string.
func Disassemble(c *chunk.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		var line string
		line, offset = Instruction(c, offset)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Instruction renders the single instruction at offset and returns the
// offset of the instruction that follows it. This is also what the
// VM's optional execution trace calls per dispatched instruction.
func Instruction(c *chunk.Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", c.Lines[offset])
	}

	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpConstant:
		return constantInst(&b, c, op, offset)
	case chunk.OpConstantLong:
		return constantLongInst(&b, c, op, offset)
	case chunk.OpGetLocal, chunk.OpSetLocal:
		return byteInst(&b, op, c, offset)
	case chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal:
		return constantInst(&b, c, op, offset)
	case chunk.OpNil, chunk.OpTrue, chunk.OpFalse, chunk.OpPop,
		chunk.OpEqual, chunk.OpGreater, chunk.OpLess,
		chunk.OpAdd, chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide,
		chunk.OpNot, chunk.OpNegate, chunk.OpPrint, chunk.OpReturn:
		return simpleInst(&b, op), offset + 1
	default:
		fmt.Fprintf(&b, "Unknown opcode %d", op)
		return b.String(), offset + 1
	}
}

func simpleInst(b *strings.Builder, op chunk.OpCode) string {
	b.WriteString(op.String())
	return b.String()
}

func byteInst(b *strings.Builder, op chunk.OpCode, c *chunk.Chunk, offset int) (string, int) {
	slot := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d", op.String(), slot)
	return b.String(), offset + 2
}

func constantInst(b *strings.Builder, c *chunk.Chunk, op chunk.OpCode, offset int) (string, int) {
	idx := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d '%s'", op.String(), idx, c.Constants.At(int(idx)))
	return b.String(), offset + 2
}

func constantLongInst(b *strings.Builder, c *chunk.Chunk, op chunk.OpCode, offset int) (string, int) {
	idx := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])<<16
	fmt.Fprintf(b, "%-16s %4d '%s'", op.String(), idx, c.Constants.At(idx))
	return b.String(), offset + 4
}
