package chunk

import (
	"testing"

	"github.com/kristofer/loxvm/pkg/value"
)

func TestWriteAppendsCodeAndMatchingLine(t *testing.T) {
	c := New()
	c.WriteOp(OpReturn, 3)
	c.Write(0xFF, 3)

	if len(c.Code) != 2 || len(c.Lines) != 2 {
		t.Fatalf("expected parallel 2-entry arrays, got code=%v lines=%v", c.Code, c.Lines)
	}
	if OpCode(c.Code[0]) != OpReturn {
		t.Errorf("got %s", OpCode(c.Code[0]))
	}
	if c.Lines[0] != 3 || c.Lines[1] != 3 {
		t.Errorf("expected both entries tagged line 3, got %v", c.Lines)
	}
}

func TestAddConstantReturnsSequentialIndices(t *testing.T) {
	c := New()
	i0 := c.AddConstant(value.Number(1))
	i1 := c.AddConstant(value.Number(2))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("got i0=%d i1=%d", i0, i1)
	}
	if c.Constants.At(0).Number != 1 || c.Constants.At(1).Number != 2 {
		t.Fatalf("constants not stored at the returned indices")
	}
}

func TestMaxConstantsShortThresholdMatchesOneByteOperand(t *testing.T) {
	if MaxConstantsShort != 255 {
		t.Fatalf("OP_CONSTANT's 1-byte operand addresses indices 0-255; got threshold %d", MaxConstantsShort)
	}
}

func TestOpCodeStringNamesEveryDefinedOpcode(t *testing.T) {
	for op := OpConstant; op <= OpReturn; op++ {
		if got := op.String(); got == "OP_UNKNOWN" {
			t.Errorf("opcode %d has no name", op)
		}
	}
}

func TestOpCodeStringUnknownForOutOfRangeValue(t *testing.T) {
	if got := OpCode(200).String(); got != "OP_UNKNOWN" {
		t.Errorf("got %q", got)
	}
}
