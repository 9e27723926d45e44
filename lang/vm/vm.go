// Package vm implements the stack-based bytecode interpreter described in
// spec.md §4.4/§4.5: a flat CallFrame stack drives execution of the
// Functions a lang/compiler.Compile run produces, rather than one Go call
// per clox function invocation.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/arborvm/clox/lang/chunk"
	"github.com/arborvm/clox/lang/intern"
	"github.com/arborvm/clox/lang/value"
	"github.com/dolthub/swiss"
	"github.com/sirupsen/logrus"
)

const (
	maxFrames = 64
	maxStack  = 16384
)

// frame is one activation record on the VM's call-frame stack: the
// Function executing, its instruction pointer into that Function's chunk,
// and the base index into the VM's value stack where its slot 0 (the
// callee itself, by clox convention) lives.
type frame struct {
	fn   *chunk.Function
	ip   int
	base int
}

// VM executes compiled Functions. The zero value is not usable; use New.
type VM struct {
	functions []*chunk.Function
	interner  *intern.Table
	globals   *swiss.Map[uint32, value.Value]

	stack  []value.Value
	frames []frame

	out   io.Writer
	log   *logrus.Logger
	trace bool
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStdout redirects Print statements to w instead of os.Stdout.
func WithStdout(w io.Writer) Option { return func(v *VM) { v.out = w } }

// WithTrace enables per-instruction disassembly tracing to stderr, the way
// the teacher's own debug builds gate verbose tracing behind a flag (spec.md
// §6's CLOX_TRACE environment variable feeds this through internal/maincmd).
func WithTrace(enabled bool) Option { return func(v *VM) { v.trace = enabled } }

// WithLogger attaches a structured logger for runtime-error diagnostics.
func WithLogger(l *logrus.Logger) Option { return func(v *VM) { v.log = l } }

// New returns a VM bound to interner, which must be the same table the
// compiler used to produce the Functions later passed to Interpret (string
// and identifier constants are handles into it).
func New(interner *intern.Table, opts ...Option) *VM {
	v := &VM{
		interner: interner,
		globals:  swiss.NewMap[uint32, value.Value](64),
		stack:    make([]value.Value, 0, maxStack),
		frames:   make([]frame, 0, maxFrames),
		out:      os.Stdout,
		log:      logrus.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Interpret runs functions[0] (the top-level script) to completion. Nested
// Functions reached via Call opcodes are resolved by index into functions.
// It returns a *RuntimeError if execution fails. Each call starts with empty
// value and frame stacks, whether or not the previous call failed, but
// globals persist across calls the way spec.md §6 describes the REPL doing
// across lines of input, so an independent run needs a fresh VM.
func (v *VM) Interpret(functions []*chunk.Function) error {
	v.functions = functions
	v.stack = v.stack[:0]
	v.frames = v.frames[:0]

	script := functions[0]
	if err := v.push(value.Function(0)); err != nil {
		return err
	}
	v.frames = append(v.frames, frame{fn: script, ip: 0, base: 0})
	return v.run()
}

func (v *VM) push(val value.Value) error {
	if len(v.stack) >= maxStack {
		return v.runtimeError("Stack overflow.")
	}
	v.stack = append(v.stack, val)
	return nil
}

func (v *VM) pop() value.Value {
	last := len(v.stack) - 1
	val := v.stack[last]
	v.stack = v.stack[:last]
	return val
}

func (v *VM) peek(distance int) value.Value {
	return v.stack[len(v.stack)-1-distance]
}

func (f *frame) readByte() byte {
	b := f.fn.Chunk.Code[f.ip]
	f.ip++
	return b
}

// run is the bytecode dispatch loop, spec.md §4.4's fetch-decode-execute
// cycle over the current top frame.
func (v *VM) run() error {
	for {
		f := &v.frames[len(v.frames)-1]

		if v.trace {
			chunk.DisassembleInstruction(os.Stderr, &f.fn.Chunk, f.ip)
		}

		op := chunk.OpCode(f.readByte())
		switch op {
		case chunk.Constant:
			idx := f.readByte()
			if err := v.push(f.fn.Chunk.Constants[idx]); err != nil {
				return err
			}

		case chunk.Nil:
			if err := v.push(value.Nil{}); err != nil {
				return err
			}
		case chunk.True:
			if err := v.push(value.Bool(true)); err != nil {
				return err
			}
		case chunk.False:
			if err := v.push(value.Bool(false)); err != nil {
				return err
			}

		case chunk.Pop:
			v.pop()

		case chunk.GetLocal:
			slot := f.readByte()
			if err := v.push(v.stack[f.base+int(slot)]); err != nil {
				return err
			}
		case chunk.SetLocal:
			slot := f.readByte()
			v.stack[f.base+int(slot)] = v.peek(0)

		case chunk.GetGlobal:
			name := v.constantName(f, f.readByte())
			val, ok := v.globals.Get(name)
			if !ok {
				return v.runtimeError("Undefined variable '%s'.", v.interner.Lookup(name))
			}
			if err := v.push(val); err != nil {
				return err
			}
		case chunk.SetGlobal:
			name := v.constantName(f, f.readByte())
			if _, ok := v.globals.Get(name); !ok {
				return v.runtimeError("Undefined variable '%s'.", v.interner.Lookup(name))
			}
			v.globals.Put(name, v.peek(0))
		case chunk.DefineGlobal:
			name := v.constantName(f, f.readByte())
			v.globals.Put(name, v.pop())

		case chunk.Equal:
			b := v.pop()
			a := v.pop()
			if err := v.push(value.Bool(value.Equal(a, b))); err != nil {
				return err
			}
		case chunk.Greater:
			if err := v.binaryCompare(func(a, b value.Number) bool { return a > b }); err != nil {
				return err
			}
		case chunk.Less:
			if err := v.binaryCompare(func(a, b value.Number) bool { return a < b }); err != nil {
				return err
			}

		case chunk.Add:
			if err := v.add(); err != nil {
				return err
			}
		case chunk.Subtract:
			if err := v.binaryArith(func(a, b value.Number) value.Number { return a - b }); err != nil {
				return err
			}
		case chunk.Multiply:
			if err := v.binaryArith(func(a, b value.Number) value.Number { return a * b }); err != nil {
				return err
			}
		case chunk.Divide:
			if err := v.binaryArith(func(a, b value.Number) value.Number { return a / b }); err != nil {
				return err
			}

		case chunk.Not:
			if err := v.push(value.Bool(value.IsFalsey(v.pop()))); err != nil {
				return err
			}
		case chunk.Negate:
			n, ok := v.peek(0).(value.Number)
			if !ok {
				return v.runtimeError("Operand must be a number.")
			}
			v.pop()
			if err := v.push(-n); err != nil {
				return err
			}

		case chunk.Print:
			v.printValue(v.pop())

		case chunk.Jump:
			dist := f.readByte()
			f.ip += int(dist)
		case chunk.JumpIfFalse:
			dist := f.readByte()
			if value.IsFalsey(v.peek(0)) {
				f.ip += int(dist)
			}
		case chunk.Loop:
			dist := f.readByte()
			f.ip -= int(dist)

		case chunk.Call:
			argCount := int(f.readByte())
			if err := v.callValue(v.peek(argCount), argCount); err != nil {
				return err
			}

		case chunk.Return:
			result := v.pop()
			base := f.base
			v.frames = v.frames[:len(v.frames)-1]
			v.stack = v.stack[:base]
			if len(v.frames) == 0 {
				return nil
			}
			if err := v.push(result); err != nil {
				return err
			}

		default:
			return v.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (v *VM) constantName(f *frame, idx byte) uint32 {
	id := f.fn.Chunk.Constants[idx].(value.Identifier)
	return uint32(id)
}

func (v *VM) binaryCompare(cmp func(a, b value.Number) bool) error {
	b, ok := v.peek(0).(value.Number)
	if !ok {
		return v.runtimeError("Operands must be numbers.")
	}
	a, ok := v.peek(1).(value.Number)
	if !ok {
		return v.runtimeError("Operands must be numbers.")
	}
	v.pop()
	v.pop()
	return v.push(value.Bool(cmp(a, b)))
}

func (v *VM) binaryArith(op func(a, b value.Number) value.Number) error {
	b, ok := v.peek(0).(value.Number)
	if !ok {
		return v.runtimeError("Operands must be numbers.")
	}
	a, ok := v.peek(1).(value.Number)
	if !ok {
		return v.runtimeError("Operands must be numbers.")
	}
	v.pop()
	v.pop()
	return v.push(op(a, b))
}

// add implements `+`, which spec.md §4.4 overloads over numbers and strings:
// number+number adds, string+string concatenates via the interner.
func (v *VM) add() error {
	switch bv := v.peek(0).(type) {
	case value.Number:
		av, ok := v.peek(1).(value.Number)
		if !ok {
			return v.runtimeError("Operands must be two numbers or two strings.")
		}
		v.pop()
		v.pop()
		return v.push(av + bv)
	case value.StringObj:
		av, ok := v.peek(1).(value.StringObj)
		if !ok {
			return v.runtimeError("Operands must be two numbers or two strings.")
		}
		v.pop()
		v.pop()
		concatenated := v.interner.Lookup(uint32(av)) + v.interner.Lookup(uint32(bv))
		return v.push(value.StringObj(v.interner.Intern(concatenated)))
	default:
		return v.runtimeError("Operands must be two numbers or two strings.")
	}
}

func (v *VM) callValue(callee value.Value, argCount int) error {
	fnVal, ok := callee.(value.Function)
	if !ok {
		return v.runtimeError("Can only call functions.")
	}
	fn := v.functions[int(fnVal)]
	if argCount != fn.Arity {
		return v.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if len(v.frames) >= maxFrames {
		return v.runtimeError("Stack overflow.")
	}
	base := len(v.stack) - argCount - 1
	v.frames = append(v.frames, frame{fn: fn, ip: 0, base: base})
	return nil
}

// printValue renders a value to v.out the way Print statements do,
// resolving StringObj and Function handles through the interner since
// neither knows its own text or name (spec.md §3).
func (v *VM) printValue(val value.Value) {
	switch vv := val.(type) {
	case value.StringObj:
		fmt.Fprintln(v.out, v.interner.Lookup(uint32(vv)))
	case value.Function:
		fn := v.functions[int(vv)]
		if !fn.HasName {
			fmt.Fprintln(v.out, "<script>")
			return
		}
		fmt.Fprintf(v.out, "<fn %s>\n", v.interner.Lookup(fn.Name))
	default:
		fmt.Fprintln(v.out, val.String())
	}
}

func (v *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	re := &RuntimeError{Message: msg}
	for i := len(v.frames) - 1; i >= 0; i-- {
		fr := v.frames[i]
		line := 0
		if idx := fr.ip - 1; idx >= 0 && idx < len(fr.fn.Chunk.Lines) {
			line = fr.fn.Chunk.Lines[idx]
		}
		name := "script"
		if fr.fn.HasName {
			name = v.interner.Lookup(fr.fn.Name) + "()"
		}
		re.Frames = append(re.Frames, Frame{Name: name, Line: line})
	}
	if v.log != nil {
		v.log.WithField("error", msg).Debug("runtime error")
	}
	return re
}
