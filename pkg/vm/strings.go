package vm

import (
	"github.com/kristofer/loxvm/pkg/object"
	"github.com/kristofer/loxvm/pkg/value"
)

// CopyString returns the canonical *ObjString for chars, allocating and
// interning a new one only if chars isn't already interned. It
// satisfies compiler.StringInterner — the compiler calls this for every
// string literal and every identifier used as a global name, so that
// runtime string construction (concatenation) and compile-time string
// constants always land in the same intern table.
//
// "Copy" names the clox contract this mirrors: the caller's chars is
// never retained by reference, only the bytes matter. Go strings are
// already immutable value types, so there's no separate heap buffer to
// actually duplicate — the distinction clox draws between copy_string
// (always allocates a fresh buffer) and take_string (takes ownership of
// one the caller already allocated) collapses in Go to "do we already
// have this value interned, or not"; see TakeString below for the other
// half of that contract.
func (vm *VM) CopyString(chars string) *object.ObjString {
	hash := object.HashString(chars)
	if interned := vm.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return vm.allocateString(chars, hash)
}

// TakeString is CopyString's other half: used when the caller has just
// built a brand-new string value (e.g. concatenation's result) and
// wants it interned, discarding the freshly-built value in favor of an
// existing interned object if one already matches. In clox this is
// where the caller's buffer gets freed on the hit path; in Go there is
// no buffer to free, so TakeString is CopyString in every observable
// way — the separate name documents intent at call sites (ownership of
// a new value vs. referencing a literal already in source).
func (vm *VM) TakeString(chars string) *object.ObjString {
	return vm.CopyString(chars)
}

// allocateString always creates a new object, links it into the VM's
// object list, and registers it in the intern table. It is never called
// directly except by CopyString after a failed FindString lookup.
func (vm *VM) allocateString(chars string, hash uint32) *object.ObjString {
	s := object.NewString(chars, hash)
	vm.strings.Set(s, value.Bool(true))
	s.Next = vm.objects
	vm.objects = s
	return s
}

// concatenate implements the string half of OP_ADD.
func (vm *VM) concatenate(a, b string) *object.ObjString {
	return vm.TakeString(a + b)
}
