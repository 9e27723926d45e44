package value

import "fmt"

// Identifier is a compile-time marker for global-variable names stored in the
// constant pool. It is never pushed onto the VM's value stack; it exists only
// so DefineGlobal/GetGlobal/SetGlobal can recover the variable's interner
// handle from chunk.Constants[i].
type Identifier uint32

var _ Value = Identifier(0)

func (h Identifier) String() string { return fmt.Sprintf("<identifier %d>", uint32(h)) }

func (Identifier) Type() string { return "identifier" }
