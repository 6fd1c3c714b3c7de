package compiler

import (
	"fmt"
	gotoken "go/token"
	"strconv"

	"github.com/mna/cedar/lang/scanner"
	"github.com/mna/cedar/lang/token"
	"github.com/mna/cedar/lang/value"
)

// Precedence is the precedence ladder driving the Pratt expression parser
// (spec §4.2), strictly increasing from None to Primary.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix, infix parseFn
	prec          Precedence
}

// fnKind distinguishes the implicit top-level script chunk from a function
// literal's chunk, since only the latter may use `return`.
type fnKind int

const (
	fnScript fnKind = iota
	fnFunction
)

// local is the compile-time record for a declared variable resolved by
// stack slot rather than by name (spec §3). depthUninitialized marks a
// local whose initializer has not finished compiling yet, so that
// `let x = x;` referring to the outer x is rejected.
type local struct {
	name  string
	depth int
}

const depthUninitialized = -1

const maxLocals = 256

// funcState holds the compiler state for one function being compiled. A
// nested function literal pushes a new funcState and pops it back to the
// enclosing one when done (spec §4.2 "Function compilation").
type funcState struct {
	enclosing *funcState
	chunk     *Chunk
	kind      fnKind
	locals    []local
	scopeDepth int
}

// Compiler is the single-pass parser/compiler: one token of lookahead, no
// AST, emitting bytecode directly into the current funcState's Chunk.
type Compiler struct {
	sc         *scanner.Scanner
	prev, curr token.Token

	fs *funcState

	errs      scanner.ErrorList
	panicMode bool
}

// Failed is returned when one or more compile errors were reported; every
// error was printed (accumulated in Errs) and the caller should treat this
// as the spec §7 "Failed" sentinel (process exit code 64).
type Failed struct {
	Errs scanner.ErrorList
}

func (f *Failed) Error() string { return f.Errs.Error() }

// Unwrap exposes the individual diagnostics for errors.Is/As.
func (f *Failed) Unwrap() []error {
	errs := make([]error, len(f.Errs))
	for i, e := range f.Errs {
		errs[i] = e
	}
	return errs
}

// ICE reports an internal compiler error: a condition the compiler expects
// can never happen in a well-formed compilation (spec §7 distinguishes
// these from ordinary, recoverable compile errors; exit code 65).
type ICE struct{ Msg string }

func (e *ICE) Error() string { return "internal compiler error: " + e.Msg }

// Compile compiles src into the top-level script Function, or returns
// *Failed if any diagnostic was reported.
func Compile(src string) (*value.Function, error) {
	c := &Compiler{sc: scanner.New(src)}
	c.pushFunc(fnScript, "")
	c.advance()

	for !c.match(token.EOF) {
		c.declaration()
	}

	fn, err := c.endFunc()
	if err != nil {
		return nil, err
	}
	if len(c.errs) > 0 {
		c.errs.Sort()
		return nil, &Failed{Errs: c.errs}
	}
	return fn, nil
}

func (c *Compiler) pushFunc(kind fnKind, name string) {
	fs := &funcState{
		enclosing: c.fs,
		chunk:     newChunk(name),
		kind:      kind,
		// Slot 0 is reserved for the callee itself (spec §4.2).
		locals: []local{{name: "", depth: 0}},
	}
	c.fs = fs
}

// endFunc finalizes the current funcState's chunk (implicit `null; return`
// if the function fell off the end) and pops back to the enclosing one.
func (c *Compiler) endFunc() (*value.Function, error) {
	c.fs.chunk.writeOp(OpNull, c.prevLine())
	c.fs.chunk.writeOp(OpReturn, c.prevLine())

	chunk := c.fs.chunk
	if len(chunk.Lines) != len(chunk.Code) {
		return nil, &ICE{Msg: "lines/code length mismatch"}
	}

	c.fs = c.fs.enclosing
	return &value.Function{Chunk: chunk}, nil
}

func (c *Compiler) prevLine() int { return c.prev.Line }

/* --- token stream helpers --- */

func (c *Compiler) advance() {
	c.prev = c.curr
	for {
		c.curr = c.sc.Scan()
		if c.curr.Kind != token.ILLEGAL {
			break
		}
		// The scanner already recorded the diagnostic; surface its message
		// through the compiler's own error list so Compile reports a single
		// consistent *Failed regardless of which pass found the problem.
		errs := c.sc.Errors()
		c.scanError(c.curr.Line, errs[len(errs)-1].Msg)
	}
}

func (c *Compiler) scanError(line int, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errs.Add(gotoken.Position{Line: line}, msg)
}

func (c *Compiler) check(kind token.Kind) bool { return c.curr.Kind == kind }

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind token.Kind, msg string) {
	if c.check(kind) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

/* --- error reporting & synchronization --- */

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	where := fmt.Sprintf("'%s'", tok.Lexeme)
	if tok.Kind == token.EOF {
		where = "end"
	}
	c.errs.Add(gotoken.Position{Line: tok.Line}, fmt.Sprintf("Error at %s: %s", where, msg))
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.curr, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

// synchronize skips tokens until a plausible declaration boundary, so one
// bad statement doesn't cascade into spurious follow-on errors (spec §4.2
// "Error recovery").
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.curr.Kind != token.EOF {
		if c.prev.Kind == token.SEMICOLON {
			return
		}
		switch c.curr.Kind {
		case token.CLASS, token.FN, token.LET, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

/* --- emission helpers --- */

func (c *Compiler) chunk() *Chunk { return c.fs.chunk }

func (c *Compiler) emitConstant(v value.Value) {
	idx, err := c.chunk().addConstant(v)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.chunk().writeOp1(OpConstant, idx, c.prevLine())
}

func (c *Compiler) emitJump(op Opcode) int {
	return c.chunk().writeJump(op, c.prevLine())
}

func (c *Compiler) patchJump(offset int) {
	if err := c.chunk().patchJump(offset); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitLoop(start int) {
	if err := c.chunk().emitLoop(start, c.prevLine()); err != nil {
		c.error(err.Error())
	}
}

/* --- scopes & locals --- */

func (c *Compiler) beginScope() { c.fs.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fs.scopeDepth--
	locals := c.fs.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.fs.scopeDepth {
		c.chunk().writeOp(OpPop, c.prevLine())
		locals = locals[:len(locals)-1]
	}
	c.fs.locals = locals
}

func (c *Compiler) addLocal(name string) {
	if len(c.fs.locals) >= maxLocals {
		c.error("too many local variables in function")
		return
	}
	c.fs.locals = append(c.fs.locals, local{name: name, depth: depthUninitialized})
}

func (c *Compiler) declareVariable(name string) {
	if c.fs.scopeDepth == 0 {
		return
	}
	for i := len(c.fs.locals) - 1; i >= 0; i-- {
		l := c.fs.locals[i]
		if l.depth != depthUninitialized && l.depth < c.fs.scopeDepth {
			break
		}
		if l.name == name {
			c.error(fmt.Sprintf("variable %q already declared in this scope", name))
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.fs.scopeDepth == 0 {
		return
	}
	c.fs.locals[len(c.fs.locals)-1].depth = c.fs.scopeDepth
}

// resolveLocal returns the slot of name in the innermost enclosing scope,
// or -1 if it must be a global.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.fs.locals) - 1; i >= 0; i-- {
		l := c.fs.locals[i]
		if l.name == name {
			if l.depth == depthUninitialized {
				c.error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

/* --- declarations & statements --- */

func (c *Compiler) declaration() {
	switch {
	case c.match(token.FN):
		c.fnDeclaration()
	case c.match(token.LET):
		c.letDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) parseVariable(msg string) (nameConst uint8, name string, isGlobal bool) {
	c.consume(token.IDENT, msg)
	name = c.prev.Lexeme
	c.declareVariable(name)
	if c.fs.scopeDepth > 0 {
		return 0, name, false
	}
	idx, err := c.chunk().addNameConstant(name)
	if err != nil {
		c.error(err.Error())
	}
	return idx, name, true
}

func (c *Compiler) defineVariable(nameConst uint8, isGlobal bool) {
	if !isGlobal {
		c.markInitialized()
		return
	}
	c.chunk().writeOp1(OpDefineGlobal, nameConst, c.prevLine())
}

func (c *Compiler) letDeclaration() {
	nameConst, _, isGlobal := c.parseVariable("expect variable name")

	if c.match(token.EQ) {
		c.expression()
	} else {
		c.chunk().writeOp(OpNull, c.prevLine())
	}
	c.consume(token.SEMICOLON, "expect ';' after variable declaration")
	c.defineVariable(nameConst, isGlobal)
}

func (c *Compiler) fnDeclaration() {
	nameConst, name, isGlobal := c.parseVariable("expect function name")
	c.markInitialized() // a function can call itself recursively
	c.function(name)
	c.defineVariable(nameConst, isGlobal)
}

func (c *Compiler) function(name string) {
	c.pushFunc(fnFunction, name)
	c.beginScope()

	c.consume(token.LPAREN, "expect '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			c.fs.chunk.FnArity++
			if c.fs.chunk.FnArity > 255 {
				c.errorAtCurrent("can't have more than 255 parameters")
			}
			nameConst, _, isGlobal := c.parseVariable("expect parameter name")
			c.defineVariable(nameConst, isGlobal)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after parameters")
	c.consume(token.LBRACE, "expect '{' before function body")
	c.block()

	fn, err := c.endFunc()
	if err != nil {
		c.error(err.Error())
		return
	}
	c.emitConstant(fn)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "expect '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after value")
	c.chunk().writeOp(OpPrint, c.prevLine())
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after expression")
	c.chunk().writeOp(OpPop, c.prevLine())
}

func (c *Compiler) returnStatement() {
	if c.fs.kind == fnScript {
		c.error("can't return from top-level code")
	}
	if c.match(token.SEMICOLON) {
		c.chunk().writeOp(OpNull, c.prevLine())
		c.chunk().writeOp(OpReturn, c.prevLine())
		return
	}
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after return value")
	c.chunk().writeOp(OpReturn, c.prevLine())
}

func (c *Compiler) ifStatement() {
	c.expression()

	thenJump := c.emitJump(OpJumpIfFalse)
	c.chunk().writeOp(OpPop, c.prevLine())
	c.statement()

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.chunk().writeOp(OpPop, c.prevLine())

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.expression()

	exitJump := c.emitJump(OpJumpIfFalse)
	c.chunk().writeOp(OpPop, c.prevLine())
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.chunk().writeOp(OpPop, c.prevLine())
}

// forStatement desugars `for (init; cond; step) body` per spec §4.2.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.LET):
		c.letDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.check(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = c.emitJump(OpJumpIfFalse)
		c.chunk().writeOp(OpPop, c.prevLine())
	} else {
		c.advance() // consume the ';'
	}

	if !c.check(token.RPAREN) {
		bodyJump := c.emitJump(OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.chunk().writeOp(OpPop, c.prevLine())
		c.consume(token.RPAREN, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.advance() // consume the ')'
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.chunk().writeOp(OpPop, c.prevLine())
	}
	c.endScope()
}

/* --- expressions (Pratt) --- */

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := rules[c.prev.Kind].prefix
	if prefix == nil {
		c.error("expect expression")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= rules[c.curr.Kind].prec {
		c.advance()
		infix := rules[c.prev.Kind].infix
		if infix == nil {
			c.error("expect expression")
			return
		}
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.error("invalid assignment target")
	}
}

func number(c *Compiler, _ bool) {
	n, err := parseNumber(c.prev.Lexeme)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.emitConstant(value.Number(n))
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RPAREN, "expect ')' after expression")
}

func literal(c *Compiler, _ bool) {
	switch c.prev.Kind {
	case token.FALSE:
		c.chunk().writeOp(OpFalse, c.prevLine())
	case token.TRUE:
		c.chunk().writeOp(OpTrue, c.prevLine())
	case token.NULL:
		c.chunk().writeOp(OpNull, c.prevLine())
	default:
		c.error("internal error: not a literal token")
	}
}

func str(c *Compiler, _ bool) {
	lexeme := c.prev.Lexeme
	// Raw bytes between the quotes, no escape processing (spec §6).
	c.emitConstant(value.String(lexeme[1 : len(lexeme)-1]))
}

func variable(c *Compiler, canAssign bool) {
	namedVariable(c, c.prev.Lexeme, canAssign)
}

func namedVariable(c *Compiler, name string, canAssign bool) {
	var getOp, setOp Opcode
	slot := c.resolveLocal(name)

	var arg uint8
	isLocal := slot >= 0
	if isLocal {
		arg = uint8(slot)
		getOp, setOp = OpGetLocal, OpSetLocal
	} else {
		idx, err := c.chunk().addNameConstant(name)
		if err != nil {
			c.error(err.Error())
			return
		}
		arg = idx
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.chunk().writeOp1(setOp, arg, c.prevLine())
	} else {
		c.chunk().writeOp1(getOp, arg, c.prevLine())
	}
}

func unary(c *Compiler, _ bool) {
	opKind := c.prev.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case token.MINUS:
		c.chunk().writeOp(OpNegate, c.prevLine())
	case token.BANG:
		c.chunk().writeOp(OpNot, c.prevLine())
	}
}

func binary(c *Compiler, _ bool) {
	opKind := c.prev.Kind
	rule := rules[opKind]
	c.parsePrecedence(rule.prec + 1)

	line := c.prevLine()
	switch opKind {
	case token.PLUS:
		c.chunk().writeOp(OpAdd, line)
	case token.MINUS:
		c.chunk().writeOp(OpSub, line)
	case token.STAR:
		c.chunk().writeOp(OpMul, line)
	case token.SLASH:
		c.chunk().writeOp(OpDiv, line)
	case token.BANG_EQ:
		c.chunk().writeOp(OpNotEq, line)
	case token.EQ_EQ:
		c.chunk().writeOp(OpEq, line)
	case token.GREATER:
		c.chunk().writeOp(OpGt, line)
	case token.GREATER_EQ:
		c.chunk().writeOp(OpGe, line)
	case token.LESS:
		c.chunk().writeOp(OpLt, line)
	case token.LESS_EQ:
		c.chunk().writeOp(OpLe, line)
	}
}

// and_ and or_ implement short-circuit evaluation (spec §4.2).
func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.chunk().writeOp(OpPop, c.prevLine())
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	c.chunk().writeOp(OpPop, c.prevLine())
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func call(c *Compiler, _ bool) {
	argCount := argumentList(c)
	c.chunk().writeOp1(OpCall, argCount, c.prevLine())
}

func argumentList(c *Compiler) uint8 {
	var count int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count++; count > 255 {
				c.error("can't have more than 255 arguments")
			}
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after arguments")
	return uint8(count)
}

var rules = map[token.Kind]parseRule{
	token.LPAREN:     {grouping, call, PrecCall},
	token.MINUS:      {unary, binary, PrecTerm},
	token.PLUS:       {nil, binary, PrecTerm},
	token.SLASH:      {nil, binary, PrecFactor},
	token.STAR:       {nil, binary, PrecFactor},
	token.BANG:       {unary, nil, PrecNone},
	token.BANG_EQ:    {nil, binary, PrecEquality},
	token.EQ_EQ:      {nil, binary, PrecEquality},
	token.GREATER:    {nil, binary, PrecComparison},
	token.GREATER_EQ: {nil, binary, PrecComparison},
	token.LESS:       {nil, binary, PrecComparison},
	token.LESS_EQ:    {nil, binary, PrecComparison},
	token.IDENT:      {variable, nil, PrecNone},
	token.STRING:     {str, nil, PrecNone},
	token.NUMBER:     {number, nil, PrecNone},
	token.AND:        {nil, and_, PrecAnd},
	token.OR:         {nil, or_, PrecOr},
	token.FALSE:      {literal, nil, PrecNone},
	token.TRUE:       {literal, nil, PrecNone},
	token.NULL:       {literal, nil, PrecNone},
}

func parseNumber(lexeme string) (float64, error) {
	f, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number literal %q", lexeme)
	}
	return f, nil
}
