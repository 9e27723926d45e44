package compiler_test

import (
	"strings"
	"testing"

	"github.com/arborvm/clox/lang/chunk"
	"github.com/arborvm/clox/lang/compiler"
	"github.com/arborvm/clox/lang/intern"
	"github.com/arborvm/clox/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) []*chunk.Function {
	t.Helper()
	funcs, err := compiler.Compile(src, intern.New(8))
	require.NoError(t, err)
	require.NotEmpty(t, funcs)
	return funcs
}

func TestCompileArithmeticExpression(t *testing.T) {
	funcs := compile(t, "print 1 + 2 * 3;")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.Multiply))
	assert.Contains(t, script.Chunk.Code, byte(chunk.Add))
	assert.Contains(t, script.Chunk.Code, byte(chunk.Print))
}

func TestCompileGlobalVariable(t *testing.T) {
	funcs := compile(t, "var a = 1; a = 2; print a;")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.DefineGlobal))
	assert.Contains(t, script.Chunk.Code, byte(chunk.SetGlobal))
	assert.Contains(t, script.Chunk.Code, byte(chunk.GetGlobal))
}

func TestCompileLocalScope(t *testing.T) {
	funcs := compile(t, "{ var a = 1; print a; }")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.GetLocal))
	assert.NotContains(t, script.Chunk.Code, byte(chunk.DefineGlobal))
	assert.Contains(t, script.Chunk.Code, byte(chunk.Pop))
}

func TestCompileUseBeforeInitError(t *testing.T) {
	_, err := compiler.Compile("{ var a = a; }", intern.New(8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own initializer")
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	funcs := compile(t, "if (true) { print 1; } else { print 2; }")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.JumpIfFalse))
	assert.Contains(t, script.Chunk.Code, byte(chunk.Jump))
}

func TestCompileWhileEmitsLoop(t *testing.T) {
	funcs := compile(t, "while (true) { print 1; }")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.Loop))
}

func TestCompileForDesugars(t *testing.T) {
	funcs := compile(t, "for (var i = 0; i < 3; i = i + 1) { print i; }")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.Loop))
	assert.Contains(t, script.Chunk.Code, byte(chunk.Less))
}

func TestCompileLogicalShortCircuit(t *testing.T) {
	funcs := compile(t, "print true and false or true;")
	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.JumpIfFalse))
	assert.Contains(t, script.Chunk.Code, byte(chunk.Jump))
}

func TestCompileFunctionDeclarationAndCall(t *testing.T) {
	funcs := compile(t, "fun add(a, b) { return a + b; } print add(1, 2);")
	require.Len(t, funcs, 2)
	assert.Equal(t, 2, funcs[1].Arity)
	assert.Contains(t, funcs[1].Chunk.Code, byte(chunk.Add))
	assert.Contains(t, funcs[1].Chunk.Code, byte(chunk.Return))

	script := funcs[0]
	assert.Contains(t, script.Chunk.Code, byte(chunk.Call))

	var sawFn bool
	for _, c := range script.Chunk.Constants {
		if _, ok := c.(value.Function); ok {
			sawFn = true
		}
	}
	assert.True(t, sawFn, "expected a value.Function constant for the compiled fn")
}

func TestCompileReturnOutsideFunctionIsError(t *testing.T) {
	_, err := compiler.Compile("return 1;", intern.New(8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-level")
}

func TestCompileStringInterning(t *testing.T) {
	table := intern.New(8)
	funcs, err := compiler.Compile(`print "hi" + "hi";`, table)
	require.NoError(t, err)

	var handles []uint32
	for _, c := range funcs[0].Chunk.Constants {
		if s, ok := c.(value.StringObj); ok {
			handles = append(handles, uint32(s))
		}
	}
	require.Len(t, handles, 2)
	assert.Equal(t, handles[0], handles[1], "identical string literals intern to the same handle")
}

func TestCompileTooManyConstantsError(t *testing.T) {
	src := "var a = 0;\n"
	for i := 0; i < 300; i++ {
		src += "print " + itoa(i) + ";\n"
	}
	_, err := compiler.Compile(src, intern.New(8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too many constants")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestCompileSyntaxErrorsAggregate(t *testing.T) {
	_, err := compiler.Compile("var ; var ;", intern.New(8))
	require.Error(t, err)
	wrapped := err.(interface{ WrappedErrors() []error }).WrappedErrors()
	assert.GreaterOrEqual(t, len(wrapped), 2)

	// spec.md §6 wants one bare "[line L] Error...: MESSAGE" line per
	// diagnostic, not go-multierror's default "N error(s) occurred:" banner.
	assert.NotContains(t, err.Error(), "error(s) occurred")
	lines := strings.Split(err.Error(), "\n")
	assert.Len(t, lines, len(wrapped))
	for _, line := range lines {
		assert.Regexp(t, `^\[line \d+\] Error.*$`, line)
	}
}
