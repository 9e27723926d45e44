// Package chunk implements the bytecode container described in spec.md §3:
// a Chunk is the (code, constants, lines) triple the compiler emits into and
// the VM executes, owned by a Function.
package chunk

import "github.com/arborvm/clox/lang/value"

// MaxConstants is the per-chunk cap on the constant pool, spec.md §3/§5:
// indices must fit in an unsigned byte.
const MaxConstants = 256

// Chunk is a packaged bytecode program unit: instructions, the constant
// pool they index into, and a 1:1 line map used for error reporting.
//
// Invariant: len(Code) == len(Lines). Invariant: every operand of Constant,
// DefineGlobal, GetGlobal or SetGlobal in Code is < len(Constants).
type Chunk struct {
	Code      []byte
	Constants []value.Value
	Lines     []int
}

// Write appends a single instruction byte (an opcode or an operand byte) and
// records the source line it originated from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the constant pool and returns its index. It
// returns false if the pool is already at MaxConstants.
func (c *Chunk) AddConstant(v value.Value) (int, bool) {
	if len(c.Constants) >= MaxConstants {
		return 0, false
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, true
}

// Function is a compiled function: its arity, its chunk, and an optional
// name (an interner handle). The top-level script is a Function with Name
// unset (HasName false) and Arity 0.
type Function struct {
	Arity   int
	Chunk   Chunk
	Name    uint32
	HasName bool
}

// String renders the function the way runtime error stack traces name a
// frame: "script" for the top-level Function, "fn" otherwise (the VM
// resolves the interned name for display; Function itself does not have
// access to the interner).
func (f *Function) String() string {
	if !f.HasName {
		return "script"
	}
	return "fn"
}
