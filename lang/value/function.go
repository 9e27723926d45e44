package value

import "fmt"

// Function is a reference to a compiled function: an index into the VM's
// functions list. The top-level script is stored there too, as a Function
// with no name.
type Function uint32

var _ Value = Function(0)

func (h Function) String() string { return fmt.Sprintf("<fn %d>", uint32(h)) }

func (Function) Type() string { return "function" }
