// Package table implements the open-addressing hash table that backs
// both string interning and the VM's global variables.
package table

import (
	"github.com/kristofer/loxvm/pkg/object"
	"github.com/kristofer/loxvm/pkg/value"
)

const maxLoad = 0.75

// entry is a single slot. Three logical states, per spec.md:
//   - empty:     key == nil, value == value.Nil
//   - tombstone: key == nil, value == value.Bool(true)
//   - live:      key != nil
type entry struct {
	key *object.ObjString
	val value.Value
}

// Table is an open-addressing hash table keyed by interned *ObjString.
// Linear probing relies on key identity (pointer equality), which is
// sound only because every ObjString is interned before it's ever used
// as a key — see pkg/vm's CopyString/TakeString.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

// New returns an empty Table. The zero value is also usable directly.
func New() *Table { return &Table{} }

// Count returns count (live + tombstones), matching spec.md's Table.count.
func (t *Table) Count() int { return t.count }

// Capacity returns the current backing-array size.
func (t *Table) Capacity() int { return len(t.entries) }

// Set stores value under key, growing the table first if the new load
// factor would exceed 0.75. Returns true iff key was not already
// present, whether it lands in an empty slot or reuses a tombstone;
// count grows only in the empty-slot case.
func (t *Table) Set(key *object.ObjString, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}

	e := findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && e.val.IsNil() {
		// A genuinely empty slot, not a reused tombstone: count grows.
		t.count++
	}

	e.key = key
	e.val = val
	return isNewKey
}

// Get looks up key and reports whether it was present.
func (t *Table) Get(key *object.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return value.Nil, false
	}
	return e.val, true
}

// Delete tombstones key's entry if present. Count is not decremented —
// tombstones must keep later entries' linear-probe chains intact.
func (t *Table) Delete(key *object.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.Bool(true) // tombstone marker
	return true
}

// AddAll copies every live entry of from into t.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.key != nil {
			t.Set(e.key, e.val)
		}
	}
}

// FindString looks up an interned string by its raw bytes and hash,
// without requiring the caller to already have allocated an ObjString.
// This is what lets CopyString/TakeString avoid allocating a duplicate
// object just to check whether the bytes are already interned.
func (t *Table) FindString(chars string, hash uint32) *object.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := int(hash) % capacity
	for {
		e := &t.entries[index]
		if e.key == nil {
			if e.val.IsNil() {
				return nil // truly empty: not found
			}
			// tombstone: keep probing
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) % capacity
	}
}

// findEntry probes entries starting at key.Hash mod capacity, per
// spec.md: on the same key, return that slot; on an empty slot, return
// it (or the first tombstone seen en route, if any); on a tombstone,
// remember the first one and keep probing.
func findEntry(entries []entry, key *object.ObjString) *entry {
	capacity := len(entries)
	index := int(key.Hash) % capacity
	var tombstone *entry

	for {
		e := &entries[index]
		if e.key == nil {
			if e.val.IsNil() {
				// Truly empty.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			// Tombstone.
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) % capacity
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// adjustCapacity reallocates to newCapacity, rehashing only live
// entries and dropping tombstones, per spec.md's grow strategy.
func (t *Table) adjustCapacity(newCapacity int) {
	fresh := make([]entry, newCapacity)

	t.count = 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.key == nil {
			continue
		}
		dest := findEntry(fresh, old.key)
		dest.key = old.key
		dest.val = old.val
		t.count++
	}

	t.entries = fresh
}
