package chunk

import (
	"fmt"
	"io"
)

// Disassemble writes a textual disassembly of every instruction in c to w,
// headed by a "== name ==" banner. This is the debug-trace facility spec.md
// §9 describes ("may disassemble each instruction before executing it"); it
// never affects program semantics.
func Disassemble(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes a single instruction at offset and returns
// the offset of the next one. The format is adapted from the reference
// interpreter's own disassembler: "OFFSET LINE OPNAME" for simple
// instructions ("   |" in place of LINE when it repeats the previous
// instruction's line), and "OFFSET LINE OPNAME OPERAND" when the opcode
// carries one.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op.ArgWidth() {
	case 0:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	case 1:
		arg := c.Code[offset+1]
		switch op {
		case Constant, DefineGlobal, GetGlobal, SetGlobal:
			fmt.Fprintf(w, "%-16s %4d '%s'\n", op, arg, c.Constants[arg])
		case Jump, JumpIfFalse:
			fmt.Fprintf(w, "%-16s %4d -> %d\n", op, arg, offset+2+int(arg))
		case Loop:
			fmt.Fprintf(w, "%-16s %4d -> %d\n", op, arg, offset+2-int(arg))
		default:
			fmt.Fprintf(w, "%-16s %4d\n", op, arg)
		}
		return offset + 2
	default:
		fmt.Fprintf(w, "unknown opcode %d\n", op)
		return offset + 1
	}
}
