package value

import "fmt"

// StringObj is a runtime string: a handle into the VM's interner table. Two
// StringObj values are equal iff they hold the same handle, which holds iff
// the underlying byte sequences are equal (interning is deduplicating).
type StringObj uint32

var _ Value = StringObj(0)

// String does not resolve the handle to its bytes; callers that need the
// actual text must look it up in the owning interner. This matches spec.md §3
// (StringObj is a handle, not a copy of the bytes) but means StringObj.String
// cannot itself print the text — the VM's Print opcode looks it up directly.
func (h StringObj) String() string { return fmt.Sprintf("<string %d>", uint32(h)) }

func (StringObj) Type() string { return "string" }
