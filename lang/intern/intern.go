// Package intern implements the deduplicating string table described in
// spec.md §3 and §4.2: byte strings map to small stable integer handles, and
// handles map back to the original bytes.
//
// The forward table is a *swiss.Map, the same SwissTable-based map the
// teacher uses for its own dynamic Map value type (lang/machine/map.go in the
// teacher), swapped in here for a plain Go map for the same reason: few
// allocations and fast probing under heavy Intern traffic from the compiler.
package intern

import "github.com/dolthub/swiss"

// Table is a deduplicating string table. The zero value is not usable; use
// New.
type Table struct {
	handles *swiss.Map[string, uint32]
	strings []string
}

// New returns an empty Table with initial capacity for at least size
// distinct strings.
func New(size int) *Table {
	if size < 0 {
		size = 0
	}
	return &Table{
		handles: swiss.NewMap[string, uint32](uint32(size)),
		strings: make([]string, 0, size),
	}
}

// Intern adds s to the table if it is not already present and returns its
// handle. Intern is idempotent: Intern(a) == Intern(b) iff a's bytes equal
// b's bytes.
func (t *Table) Intern(s string) uint32 {
	if h, ok := t.handles.Get(s); ok {
		return h
	}
	h := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.handles.Put(s, h)
	return h
}

// Lookup returns the bytes stored under handle h. It panics if h was never
// returned by Intern on this table.
func (t *Table) Lookup(h uint32) string {
	return t.strings[h]
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	return len(t.strings)
}
