package table

import (
	"testing"

	"github.com/kristofer/loxvm/pkg/object"
	"github.com/kristofer/loxvm/pkg/value"
)

func str(s string) *object.ObjString {
	return object.NewString(s, object.HashString(s))
}

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New()
	key := str("answer")
	if !tbl.Set(key, value.Number(42)) {
		t.Fatal("expected Set on a fresh key to report new-key insertion")
	}
	got, ok := tbl.Get(key)
	if !ok || got.Number != 42 {
		t.Fatalf("got (%v, %v), want (42, true)", got, ok)
	}
}

func TestSetExistingKeyReportsNotNew(t *testing.T) {
	tbl := New()
	key := str("x")
	tbl.Set(key, value.Number(1))
	if tbl.Set(key, value.Number(2)) {
		t.Fatal("expected Set on an existing key to report false")
	}
	got, _ := tbl.Get(key)
	if got.Number != 2 {
		t.Fatalf("expected overwritten value 2, got %v", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	tbl := New()
	_, ok := tbl.Get(str("nope"))
	if ok {
		t.Fatal("expected Get on empty table to report absent")
	}
}

func TestDeleteTombstonesPreserveProbeChain(t *testing.T) {
	tbl := New()
	a, b := str("a"), str("b")
	tbl.Set(a, value.Number(1))
	tbl.Set(b, value.Number(2))

	if !tbl.Delete(a) {
		t.Fatal("expected Delete(a) to succeed")
	}
	// b must still be reachable even though a (possibly earlier in a's
	// probe chain) is now a tombstone.
	got, ok := tbl.Get(b)
	if !ok || got.Number != 2 {
		t.Fatalf("got (%v, %v), want (2, true)", got, ok)
	}
	if _, ok := tbl.Get(a); ok {
		t.Fatal("deleted key should no longer be found")
	}
}

func TestLoadFactorNeverExceedsThreeQuarters(t *testing.T) {
	tbl := New()
	for i := 0; i < 200; i++ {
		tbl.Set(str(string(rune('a'+i%26))+string(rune(i))), value.Number(float64(i)))
		if float64(tbl.Count()) > float64(tbl.Capacity())*maxLoad {
			t.Fatalf("load factor exceeded 0.75 at i=%d: count=%d capacity=%d", i, tbl.Count(), tbl.Capacity())
		}
	}
}

func TestAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := New()
	a, b := str("a"), str("b")
	src.Set(a, value.Number(1))
	src.Set(b, value.Number(2))
	src.Delete(a)

	dst := New()
	dst.AddAll(src)

	if _, ok := dst.Get(a); ok {
		t.Fatal("tombstoned entry should not have been copied")
	}
	got, ok := dst.Get(b)
	if !ok || got.Number != 2 {
		t.Fatalf("got (%v, %v), want (2, true)", got, ok)
	}
}

func TestFindStringLocatesInternedBytesWithoutAnObject(t *testing.T) {
	tbl := New()
	key := str("shared")
	tbl.Set(key, value.Bool(true))

	found := tbl.FindString("shared", object.HashString("shared"))
	if found != key {
		t.Fatalf("FindString should return the exact interned object, got %v want %v", found, key)
	}
	if tbl.FindString("other", object.HashString("other")) != nil {
		t.Fatal("FindString should return nil for unknown bytes")
	}
}
