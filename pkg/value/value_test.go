package value

import (
	"testing"

	"github.com/kristofer/loxvm/pkg/object"
)

func TestIsFalsey(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil, true},
		{Bool(false), true},
		{Bool(true), false},
		{Number(0), false},
		{Obj(object.NewString("", object.HashString(""))), false},
	}
	for _, tt := range tests {
		if got := tt.v.IsFalsey(); got != tt.want {
			t.Errorf("IsFalsey(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEqualsByVariant(t *testing.T) {
	s1 := object.NewString("hi", object.HashString("hi"))
	s2 := object.NewString("hi", object.HashString("hi")) // distinct object, same bytes

	tests := []struct {
		a, b Value
		want bool
	}{
		{Nil, Nil, true},
		{Bool(true), Bool(true), true},
		{Bool(true), Bool(false), false},
		{Number(1), Number(1), true},
		{Number(1), Number(2), false},
		{Nil, Bool(false), false}, // different kinds never equal
		{Obj(s1), Obj(s1), true},  // same object: identity holds
		{Obj(s1), Obj(s2), false}, // distinct objects: not equal even with equal bytes (interning is what makes this safe in practice)
	}
	for i, tt := range tests {
		if got := Equals(tt.a, tt.b); got != tt.want {
			t.Errorf("case %d: Equals(%v, %v) = %v, want %v", i, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestStringFormatting(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Number(7), "7"},
		{Number(1.5), "1.5"},
		{Obj(object.NewString("hey", object.HashString("hey"))), "hey"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%+v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestArrayGrowthDoubles(t *testing.T) {
	var a Array
	for i := 0; i < 20; i++ {
		a.Write(Number(float64(i)))
	}
	if a.Len() != 20 {
		t.Fatalf("expected 20 entries, got %d", a.Len())
	}
	if cap(a.values) != 32 {
		t.Fatalf("expected capacity 8 doubled twice to 32, got %d", cap(a.values))
	}
	for i := 0; i < 20; i++ {
		if a.At(i).Number != float64(i) {
			t.Fatalf("entry %d: got %v", i, a.At(i))
		}
	}
}

func TestIsStringAndAsString(t *testing.T) {
	v := Obj(object.NewString("abc", object.HashString("abc")))
	if !v.IsString() {
		t.Fatal("expected IsString true")
	}
	if v.AsString() != "abc" {
		t.Fatalf("got %q", v.AsString())
	}
	if Number(1).IsString() {
		t.Fatal("a number must not report IsString")
	}
}
