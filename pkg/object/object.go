// Package object defines lox's heap object variants and the intrusive
// list that owns every live one.
//
// clox keeps a single `next` pointer inside every heap struct so the VM
// can walk and free all objects at teardown without a separate
// allocation bookkeeping table. Obj is the Go analogue of that header;
// Object is the interface every heap variant satisfies by embedding one.
package object

// Kind tags the variant of a heap object. Only String exists today; the
// tag still exists (rather than collapsing to a single concrete type)
// because Value's Obj field and the VM's object list are typed in terms
// of the closed set of heap variants spec.md describes, and a second
// variant must slot in without changing that contract.
type Kind int

const (
	KindString Kind = iota
)

// Object is satisfied by every heap object variant. Header returns the
// embedded Obj so the VM's object list can read/link Next without
// knowing the concrete variant.
type Object interface {
	Header() *Obj
}

// Obj is embedded by every heap object variant. Next links it into the
// owning VM's intrusive object list; objects are never otherwise
// tracked, so walking that list from the VM's head is the only way to
// find and free them all.
type Obj struct {
	Kind Kind
	Next Object
}

// Header implements Object for the embedding type's convenience; a
// variant embeds Obj and inherits this.
func (o *Obj) Header() *Obj { return o }

// ObjString is lox's only heap object variant: an immutable, interned
// byte sequence. At most one live ObjString exists per distinct Chars
// value (see pkg/table's string-interning support) — callers never
// construct one directly, they go through a VM's CopyString/TakeString.
type ObjString struct {
	Obj
	Chars string
	Hash  uint32
}

// NewString wraps chars as a freshly allocated, not-yet-interned
// ObjString. Only pkg/vm calls this, immediately after failing to find
// chars already interned.
func NewString(chars string, hash uint32) *ObjString {
	return &ObjString{Obj: Obj{Kind: KindString}, Chars: chars, Hash: hash}
}

// HashString computes the FNV-1a 32-bit hash spec.md mandates: offset
// basis 2166136261, prime 16777619, each byte XOR'd in before the
// multiply.
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// AsString asserts that o wraps a string object. Panics on mismatch —
// callers only reach this after checking Kind (or, for a Value, after
// checking value.Value.IsString()), so a failed assertion is a compiler
// bug, never reachable from user input.
func AsString(o Object) *ObjString {
	s, ok := o.(*ObjString)
	if !ok {
		panic("object: AsString on non-string Obj")
	}
	return s
}
