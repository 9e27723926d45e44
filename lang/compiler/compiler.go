// Package compiler implements the single-pass, Pratt precedence-climbing
// compiler described in spec.md §4.3: it consumes tokens directly from a
// lang/scanner.Scanner and emits bytecode straight into a lang/chunk.Chunk,
// with no intermediate AST.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arborvm/clox/lang/chunk"
	"github.com/arborvm/clox/lang/intern"
	"github.com/arborvm/clox/lang/scanner"
	"github.com/arborvm/clox/lang/token"
	"github.com/arborvm/clox/lang/value"
	multierror "github.com/hashicorp/go-multierror"
)

const maxLocals = 256

// local is one entry of the compile-time local-variable table (spec.md §3):
// a name and the scope depth at which it was declared. depth == -1 marks
// "declared but not yet initialized".
type local struct {
	name  string
	depth int
}

// compiler holds the state for compiling a single Function: its locals,
// current scope depth, and the chunk being emitted into.
type compiler struct {
	enclosing *compiler
	fn        *chunk.Function
	locals    []local
	scopeDepth int
}

// Compile compiles source into a flat list of Functions, per spec.md
// §4.3/§4.5: functions[0] is always the top-level script; every `fun`
// declaration appends its compiled body at the index embedded in the
// value.Function constant that refers to it. interner is used to intern
// string and identifier constants and function names; it must outlive the
// returned Functions, since StringObj, Identifier and function-name
// constants are handles into it.
//
// On success, err is nil. On failure, err is a *multierror.Error aggregating
// every diagnostic surfaced during panic-mode recovery (spec.md §7); functions
// is nil in that case, since a compilation that had any error never produces
// an executable program (spec.md §7's "all errors during compile abort the
// whole compile").
func Compile(source string, interner *intern.Table) (functions []*chunk.Function, err error) {
	script := &chunk.Function{}
	p := &parser{
		scanner:  scanner.New(source),
		interner: interner,
		current:  &compiler{fn: script},
		functions: []*chunk.Function{script},
	}
	// Slot 0 is reserved for VM internal use (spec.md §3's "Frame-relative
	// addressing" note): seed it with a dummy local so user locals start at 1.
	p.current.locals = append(p.current.locals, local{name: "", depth: 0})

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	p.consume(token.EOF, "Expect end of expression.")
	p.emitReturn()

	if p.hadError {
		// spec.md §6 wants one bare "[line L] Error...: MESSAGE" line per
		// diagnostic, not go-multierror's default "N error(s) occurred:"
		// banner with indented bullets.
		p.errs.ErrorFormat = func(es []error) string {
			lines := make([]string, len(es))
			for i, e := range es {
				lines[i] = e.Error()
			}
			return strings.Join(lines, "\n")
		}
		return nil, p.errs.ErrorOrNil()
	}
	return p.functions, nil
}

// parser drives the scan-and-emit loop. It tracks the usual two-token
// lookahead (previous/current) of a Pratt parser plus panic-mode recovery
// state.
type parser struct {
	scanner   *scanner.Scanner
	interner  *intern.Table
	current   *compiler
	functions []*chunk.Function

	previous token.Token
	curTok   token.Token

	panicMode bool
	hadError  bool
	errs      *multierror.Error
}

func (p *parser) chunk() *chunk.Chunk { return &p.current.fn.Chunk }

func (p *parser) advance() {
	p.previous = p.curTok
	for {
		p.curTok = p.scanner.ScanToken()
		if p.curTok.Type != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.curTok.Message)
	}
}

func (p *parser) check(t token.Type) bool { return p.curTok.Type == t }

func (p *parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t token.Type, msg string) {
	if p.curTok.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// --- error reporting & panic-mode recovery (spec.md §4.3, §7) ---

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.curTok, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	where := ""
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ILLEGAL:
		// nothing extra: lexical errors carry their own message
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.errs = multierror.Append(p.errs, fmt.Errorf("[line %d] Error%s: %s", tok.Line, where, msg))
}

// synchronize skips tokens until it reaches a likely statement boundary,
// per spec.md §4.3/§7.
func (p *parser) synchronize() {
	p.panicMode = false

	for p.curTok.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		switch p.curTok.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- emit helpers ---

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *parser) emitOp(op chunk.OpCode) { p.emitByte(byte(op)) }

func (p *parser) emitOpByte(op chunk.OpCode, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

func (p *parser) emitReturn() {
	p.emitOp(chunk.Nil)
	p.emitOp(chunk.Return)
}

func (p *parser) makeConstant(v value.Value) byte {
	idx, ok := p.chunk().AddConstant(v)
	if !ok {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v value.Value) {
	p.emitOpByte(chunk.Constant, p.makeConstant(v))
}

// emitJump emits op followed by a one-byte placeholder operand and returns
// the offset of that placeholder, to be patched later by patchJump.
func (p *parser) emitJump(op chunk.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 1
}

func (p *parser) patchJump(offset int) {
	dist := len(p.chunk().Code) - 1 - offset
	if dist > 255 {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk().Code[offset] = byte(dist)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(chunk.Loop)
	dist := len(p.chunk().Code) + 1 - loopStart
	if dist > 255 {
		p.error("Loop body too large.")
		return
	}
	p.emitByte(byte(dist))
}

// --- precedence climbing (spec.md §4.3's precedence table) ---

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPAREN:     {prefix: (*parser).grouping, infix: (*parser).call, precedence: precCall},
		token.MINUS:      {prefix: (*parser).unary, infix: (*parser).binary, precedence: precTerm},
		token.PLUS:       {infix: (*parser).binary, precedence: precTerm},
		token.SLASH:      {infix: (*parser).binary, precedence: precFactor},
		token.STAR:       {infix: (*parser).binary, precedence: precFactor},
		token.BANG:       {prefix: (*parser).unary},
		token.BANG_EQ:    {infix: (*parser).binary, precedence: precEquality},
		token.EQ_EQ:      {infix: (*parser).binary, precedence: precEquality},
		token.GREATER:    {infix: (*parser).binary, precedence: precComparison},
		token.GREATER_EQ: {infix: (*parser).binary, precedence: precComparison},
		token.LESS:       {infix: (*parser).binary, precedence: precComparison},
		token.LESS_EQ:    {infix: (*parser).binary, precedence: precComparison},
		token.IDENT:      {prefix: (*parser).variable},
		token.STRING:     {prefix: (*parser).strLiteral},
		token.NUMBER:     {prefix: (*parser).number},
		token.AND:        {infix: (*parser).and_, precedence: precAnd},
		token.OR:         {infix: (*parser).or_, precedence: precOr},
		token.FALSE:      {prefix: (*parser).literal},
		token.TRUE:       {prefix: (*parser).literal},
		token.NIL:        {prefix: (*parser).literal},
	}
}

func (p *parser) getRule(t token.Type) parseRule { return rules[t] }

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := p.getRule(p.previous.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= p.getRule(p.curTok.Type).precedence {
		p.advance()
		infix := p.getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) grouping(bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (p *parser) unary(bool) {
	opType := p.previous.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case token.BANG:
		p.emitOp(chunk.Not)
	case token.MINUS:
		p.emitOp(chunk.Negate)
	}
}

func (p *parser) binary(bool) {
	opType := p.previous.Type
	rule := p.getRule(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQ:
		p.emitOp(chunk.Equal)
		p.emitOp(chunk.Not)
	case token.EQ_EQ:
		p.emitOp(chunk.Equal)
	case token.GREATER:
		p.emitOp(chunk.Greater)
	case token.GREATER_EQ:
		p.emitOp(chunk.Less)
		p.emitOp(chunk.Not)
	case token.LESS:
		p.emitOp(chunk.Less)
	case token.LESS_EQ:
		p.emitOp(chunk.Greater)
		p.emitOp(chunk.Not)
	case token.PLUS:
		p.emitOp(chunk.Add)
	case token.MINUS:
		p.emitOp(chunk.Subtract)
	case token.STAR:
		p.emitOp(chunk.Multiply)
	case token.SLASH:
		p.emitOp(chunk.Divide)
	}
}

// call compiles the `(` of a call expression: the callee has already been
// pushed onto the operand stack by whatever prefix/infix rule preceded it.
func (p *parser) call(bool) {
	argCount := p.argumentList()
	p.emitOpByte(chunk.Call, argCount)
}

func (p *parser) argumentList() byte {
	var count int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if count == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(count)
}

func (p *parser) number(bool) {
	n, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(value.Number(n))
}

func (p *parser) strLiteral(bool) {
	text := p.previous.Lexeme[1 : len(p.previous.Lexeme)-1]
	handle := p.interner.Intern(text)
	p.emitConstant(value.StringObj(handle))
}

func (p *parser) literal(bool) {
	switch p.previous.Type {
	case token.FALSE:
		p.emitOp(chunk.False)
	case token.TRUE:
		p.emitOp(chunk.True)
	case token.NIL:
		p.emitOp(chunk.Nil)
	}
}

func (p *parser) and_(bool) {
	endJump := p.emitJump(chunk.JumpIfFalse)
	p.emitOp(chunk.Pop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *parser) or_(bool) {
	elseJump := p.emitJump(chunk.JumpIfFalse)
	endJump := p.emitJump(chunk.Jump)
	p.patchJump(elseJump)
	p.emitOp(chunk.Pop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

func (p *parser) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := p.resolveLocal(p.current, name.Lexeme)
	if arg != -1 {
		getOp, setOp = chunk.GetLocal, chunk.SetLocal
	} else {
		arg = int(p.identifierConstant(name.Lexeme))
		getOp, setOp = chunk.GetGlobal, chunk.SetGlobal
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

// --- locals and scope (spec.md §3/§4.3) ---

func (p *parser) beginScope() { p.current.scopeDepth++ }

func (p *parser) endScope() {
	p.current.scopeDepth--
	locals := p.current.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > p.current.scopeDepth {
		p.emitOp(chunk.Pop)
		locals = locals[:len(locals)-1]
	}
	p.current.locals = locals
}

func (p *parser) identifierConstant(name string) byte {
	handle := p.interner.Intern(name)
	return p.makeConstant(value.Identifier(handle))
}

func (p *parser) resolveLocal(c *compiler, name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *parser) addLocal(name string) {
	if len(p.current.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.current.locals = append(p.current.locals, local{name: name, depth: -1})
}

func (p *parser) declareVariable() {
	if p.current.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(p.current.locals) - 1; i >= 0; i-- {
		l := p.current.locals[i]
		if l.depth != -1 && l.depth < p.current.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.current.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme)
}

func (p *parser) markInitialized() {
	if p.current.scopeDepth == 0 {
		return
	}
	p.current.locals[len(p.current.locals)-1].depth = p.current.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.current.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(chunk.DefineGlobal, global)
}

// --- declarations and statements (spec.md §4.3's statement forms) ---

func (p *parser) declaration() {
	switch {
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function()
	p.defineVariable(global)
}

// function compiles a `fun` body into its own Function, appends it to the
// shared functions list, and leaves a value.Function constant referring to
// it on the enclosing chunk — spec.md §1's "first-class functions" without
// closures: a compiled function captures nothing from its enclosing scope.
func (p *parser) function() {
	name := p.previous.Lexeme
	fn := &chunk.Function{HasName: true, Name: p.interner.Intern(name)}

	enclosing := p.current
	p.current = &compiler{enclosing: enclosing, fn: fn}
	p.current.locals = append(p.current.locals, local{name: "", depth: 0})
	p.beginScope()

	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			fn.Arity++
			if fn.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()
	p.emitReturn()

	idx := len(p.functions)
	p.functions = append(p.functions, fn)
	p.current = enclosing
	p.emitConstant(value.Function(idx))
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(chunk.Nil)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitOp(chunk.Print)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(chunk.Pop)
}

func (p *parser) returnStatement() {
	if p.current.enclosing == nil {
		p.error("Can't return from top-level code.")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(chunk.Return)
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.JumpIfFalse)
	p.emitOp(chunk.Pop)
	p.statement()

	elseJump := p.emitJump(chunk.Jump)
	p.patchJump(thenJump)
	p.emitOp(chunk.Pop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.JumpIfFalse)
	p.emitOp(chunk.Pop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.Pop)
}

func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(chunk.JumpIfFalse)
		p.emitOp(chunk.Pop)
	}

	if !p.check(token.RPAREN) {
		bodyJump := p.emitJump(chunk.Jump)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(chunk.Pop)
		p.consume(token.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	} else {
		p.consume(token.RPAREN, "Expect ')' after for clauses.")
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.Pop)
	}
	p.endScope()
}
