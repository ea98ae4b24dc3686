// Package vm implements the stack-based bytecode interpreter: the VM
// owns the value stack, the globals table, the string-intern table, and
// the intrusive list of every heap object allocated during its
// lifetime.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kristofer/loxvm/pkg/chunk"
	"github.com/kristofer/loxvm/pkg/compiler"
	"github.com/kristofer/loxvm/pkg/debug"
	"github.com/kristofer/loxvm/pkg/object"
	"github.com/kristofer/loxvm/pkg/table"
	"github.com/kristofer/loxvm/pkg/value"
)

// stackMax is the VM's fixed value-stack size. Spec.md treats overflow
// beyond this as an undefined, fatal condition — we surface it as a
// RuntimeError rather than corrupting memory, which is the Go-idiomatic
// way to fail a "should never happen" invariant without crashing the
// host process.
const stackMax = 256

// InterpretResult is the three-way outcome of Interpret, per spec.md §7.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM executes compiled chunks. It is an explicit value the caller
// constructs and threads through calls (design note: "replace the
// [process-wide] global with an explicit VM value") — a REPL keeps one
// alive across lines; a one-shot file run constructs a fresh one.
type VM struct {
	chunk *chunk.Chunk
	ip    int

	stack    [stackMax]value.Value
	stackTop int

	globals *table.Table
	strings *table.Table
	objects object.Object // head of the intrusive heap-object list

	// Log receives one entry per dispatched instruction (with the
	// current stack contents) when its level is Debug or finer,
	// mirroring rami3l/golox's vm.run() trace loop. nil disables
	// tracing entirely with no overhead beyond the nil check.
	Log *logrus.Logger

	// Out receives everything `print` writes and every runtime-error
	// message. nil means os.Stdout; tests set it to a bytes.Buffer so
	// they can assert on exact output without touching the real stdout.
	Out io.Writer
}

// out returns the VM's configured writer, defaulting to os.Stdout.
func (vm *VM) out() io.Writer {
	if vm.Out == nil {
		return os.Stdout
	}
	return vm.Out
}

// New returns a ready-to-use VM with empty globals/intern tables and no
// objects allocated yet.
func New() *VM {
	return &VM{
		globals: table.New(),
		strings: table.New(),
	}
}

// Free releases every resource the VM owns: the object list (walked and
// dropped so the Go garbage collector can reclaim each ObjString), and
// the globals/intern tables. Spec.md's resource model frees all heap
// objects once, at VM teardown, by walking the intrusive list — in Go
// there is no manual free, so this walk's job is just to drop the last
// references (including breaking the list's own internal links, so a
// partially-collected cycle can't keep the whole chain reachable from a
// stale head pointer elsewhere). Call it when a VM is done for good; a
// REPL that keeps reusing one VM across lines never needs to.
func (vm *VM) Free() {
	for o := vm.objects; o != nil; {
		next := o.Header().Next
		o.Header().Next = nil
		o = next
	}
	vm.objects = nil
	vm.globals = table.New()
	vm.strings = table.New()
	vm.chunk = nil
}

// Interpret compiles and runs source to completion. The VM's globals,
// intern table, and object list persist across calls (this is what lets
// a REPL session build up state line by line); the stack and chunk do
// not.
func (vm *VM) Interpret(source string) InterpretResult {
	c := chunk.New()

	if err := compiler.Compile(source, c, vm); err != nil {
		fmt.Fprintln(vm.out(), err)
		return InterpretCompileError
	}

	vm.chunk = c
	vm.ip = 0
	vm.stackTop = 0

	return vm.run()
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// resetStack is called after a runtime error so the VM remains usable
// for the next REPL line.
func (vm *VM) resetStack() { vm.stackTop = 0 }

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants.At(int(vm.readByte()))
}

func (vm *VM) readConstantLong() value.Value {
	idx := int(vm.readByte()) | int(vm.readByte())<<8 | int(vm.readByte())<<16
	return vm.chunk.Constants.At(idx)
}

// run is the opcode dispatch loop: a giant switch, intentionally, per
// design notes — this shape is what makes the common case (arithmetic,
// locals) a single predictable branch per instruction.
func (vm *VM) run() InterpretResult {
	for {
		if vm.Log != nil {
			vm.trace()
		}

		if vm.stackTop == stackMax {
			switch chunk.OpCode(vm.chunk.Code[vm.ip]) {
			case chunk.OpConstant, chunk.OpConstantLong, chunk.OpNil, chunk.OpTrue,
				chunk.OpFalse, chunk.OpGetLocal, chunk.OpGetGlobal:
				vm.ip++
				return vm.runtimeError("Stack overflow.")
			}
		}

		switch op := chunk.OpCode(vm.readByte()); op {
		case chunk.OpConstant:
			vm.push(vm.readConstant())

		case chunk.OpConstantLong:
			vm.push(vm.readConstantLong())

		case chunk.OpNil:
			vm.push(value.Nil)

		case chunk.OpTrue:
			vm.push(value.Bool(true))

		case chunk.OpFalse:
			vm.push(value.Bool(false))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])

		case chunk.OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := object.AsString(vm.readConstant().Obj)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)

		case chunk.OpDefineGlobal:
			name := object.AsString(vm.readConstant().Obj)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case chunk.OpSetGlobal:
			name := object.AsString(vm.readConstant().Obj)
			if vm.globals.Set(name, vm.peek(0)) {
				// Set reports "newly inserted" — a set on an absent key
				// must not silently create it.
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equals(a, b)))

		case chunk.OpGreater:
			if res, ok := vm.numericCompare(func(a, b float64) bool { return a > b }); ok {
				vm.push(res)
			} else {
				return InterpretRuntimeError
			}

		case chunk.OpLess:
			if res, ok := vm.numericCompare(func(a, b float64) bool { return a < b }); ok {
				vm.push(res)
			} else {
				return InterpretRuntimeError
			}

		case chunk.OpAdd:
			if res, ok := vm.add(); ok {
				vm.push(res)
			} else {
				return InterpretRuntimeError
			}

		case chunk.OpSubtract:
			if res, ok := vm.numericBinary(func(a, b float64) float64 { return a - b }); ok {
				vm.push(res)
			} else {
				return InterpretRuntimeError
			}

		case chunk.OpMultiply:
			if res, ok := vm.numericBinary(func(a, b float64) float64 { return a * b }); ok {
				vm.push(res)
			} else {
				return InterpretRuntimeError
			}

		case chunk.OpDivide:
			if res, ok := vm.numericBinary(func(a, b float64) float64 { return a / b }); ok {
				vm.push(res)
			} else {
				return InterpretRuntimeError
			}

		case chunk.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))

		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().Number))

		case chunk.OpPrint:
			fmt.Fprintln(vm.out(), vm.pop().String())

		case chunk.OpReturn:
			return InterpretOK

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

// numericBinary implements OP_SUBTRACT/OP_MULTIPLY/OP_DIVIDE: both
// operands must be numbers. Evaluation order is left-to-right, so the
// right operand is on top of the stack — op receives (left, right).
func (vm *VM) numericBinary(op func(a, b float64) float64) (value.Value, bool) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorValue("Operands must be numbers.")
	}
	b := vm.pop().Number
	a := vm.pop().Number
	return value.Number(op(a, b)), true
}

func (vm *VM) numericCompare(op func(a, b float64) bool) (value.Value, bool) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorValue("Operands must be numbers.")
	}
	b := vm.pop().Number
	a := vm.pop().Number
	return value.Bool(op(a, b)), true
}

// add implements OP_ADD's two overloads: number+number and
// string+string (concatenation, whose result is itself interned).
func (vm *VM) add() (value.Value, bool) {
	if vm.peek(0).IsString() && vm.peek(1).IsString() {
		b := vm.pop()
		a := vm.pop()
		return value.Obj(vm.concatenate(a.AsString(), b.AsString())), true
	}
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b := vm.pop().Number
		a := vm.pop().Number
		return value.Number(a + b), true
	}
	return vm.runtimeErrorValue("Operands must be two numbers or two strings.")
}

// runtimeErrorValue is a helper for the numeric/string-overload helpers
// above, which need to report a runtime error without the run loop's
// InterpretResult plumbing. It always returns (value.Nil, false); the
// caller is expected to turn that into InterpretRuntimeError.
func (vm *VM) runtimeErrorValue(format string, args ...interface{}) (value.Value, bool) {
	vm.runtimeError(format, args...)
	return value.Nil, false
}

// runtimeError prints the formatted message followed by the source
// line that produced the instruction currently executing (the byte
// just consumed, i.e. ip-1), then resets the stack so the VM remains
// usable for a subsequent REPL line.
func (vm *VM) runtimeError(format string, args ...interface{}) InterpretResult {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(vm.out(), msg)

	line := vm.chunk.Lines[vm.ip-1]
	fmt.Fprintf(vm.out(), "[line %d] in script\n", line)

	vm.resetStack()
	return InterpretRuntimeError
}

// trace logs the instruction about to execute and the current stack,
// matching golox's per-instruction Debugln trace.
func (vm *VM) trace() {
	var stack string
	for i := 0; i < vm.stackTop; i++ {
		stack += fmt.Sprintf("[ %s ]", vm.stack[i])
	}
	inst, _ := debug.Instruction(vm.chunk, vm.ip)
	vm.Log.Debugf("%-24s %s", stack, inst)
}

// StackTop returns the value on top of the stack, mainly useful to
// tests and the REPL.
func (vm *VM) StackTop() value.Value {
	if vm.stackTop == 0 {
		return value.Nil
	}
	return vm.stack[vm.stackTop-1]
}
