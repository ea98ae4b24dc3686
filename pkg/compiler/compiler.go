// Package compiler implements lox's single-pass compiler: a Pratt
// parser that consumes tokens from a scanner.Scanner and emits bytecode
// directly into a chunk.Chunk, with no intermediate AST.
//
// Precedence climbing:
//
//	NONE < ASSIGNMENT < OR < AND < EQUALITY < COMPARISON < TERM < FACTOR
//	    < UNARY < CALL < PRIMARY
//
// A static table (rules) maps every token.Kind to a (prefix, infix,
// precedence) triple. parsePrecedence drives the climb; see its doc
// comment for the exact algorithm.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/kristofer/loxvm/pkg/chunk"
	"github.com/kristofer/loxvm/pkg/object"
	"github.com/kristofer/loxvm/pkg/scanner"
	"github.com/kristofer/loxvm/pkg/token"
	"github.com/kristofer/loxvm/pkg/value"
)

// maxLocals bounds the compiler's fixed-size local slot array, matching
// spec.md's Compiler state (Local array, max 256) and the 1-byte
// OP_GET_LOCAL/OP_SET_LOCAL operand.
const maxLocals = 256

// StringInterner is the narrow slice of *vm.VM the compiler needs: it
// must intern every string literal and identifier constant through the
// same table the VM's globals and runtime string objects use, per
// spec.md's design note that the compiler "mutates ... the VM's intern
// table and object list (for interned string literals)".
type StringInterner interface {
	CopyString(s string) *object.ObjString
}

// Precedence orders the Pratt parser's binding strengths, ascending.
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
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// local tracks one declared-but-not-yet-resolved-to-a-global variable.
// Depth == -1 means declared but uninitialized, forbidding a shadow read
// like `var x = x;` from seeing the outer x.
type local struct {
	name  token.Token
	depth int
}

// Compiler holds all single-pass compilation state: the token stream,
// the chunk being emitted into, lexical scope tracking, and accumulated
// compile errors.
type Compiler struct {
	scanner *scanner.Scanner
	chunk   *chunk.Chunk
	interner StringInterner

	previous token.Token
	current  token.Token

	panicMode bool
	errs      *multierror.Error

	locals     [maxLocals]local
	localCount int
	scopeDepth int
}

// Compile compiles source into c, a chunk the caller owns. It returns
// nil iff compilation succeeded; otherwise a *multierror.Error holding
// every diagnostic reported during the pass (panic-mode recovery
// suppresses duplicates within one synchronization unit, but distinct
// errors across the whole program all survive to the caller — unlike
// clox's single reported message per run, which spec.md's exit-code
// contract does not depend on).
func Compile(source string, c *chunk.Chunk, interner StringInterner) error {
	comp := &Compiler{
		scanner:  scanner.New(source),
		chunk:    c,
		interner: interner,
	}
	comp.advance()
	for !comp.match(token.EOF) {
		comp.declaration()
	}
	comp.emitReturn()
	return comp.errs.ErrorOrNil()
}

// --- token stream plumbing -------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Kind != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(kind token.Kind) bool { return c.current.Kind == kind }

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind token.Kind, msg string) {
	if c.current.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// --- error reporting --------------------------------------------------------

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)           { c.errorAt(c.previous, msg) }

// errorAt formats a diagnostic per spec.md §6: "[line N] Error at
// '<lexeme>': <msg>", "at end" in place of the lexeme for EOF, and no
// location clause at all for a lexical error (the scanner's own
// token.Error, whose lexeme is already the message text, not source).
// Panic-mode suppresses every report after the first until synchronize
// clears it.
func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	var b strings.Builder
	fmt.Fprintf(&b, "[line %d] Error", tok.Line)
	switch tok.Kind {
	case token.EOF:
		b.WriteString(" at end")
	case token.Error:
		// No location: the scanner already reported where.
	default:
		fmt.Fprintf(&b, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(&b, ": %s", msg)

	c.errs = multierror.Append(c.errs, errors.New(b.String()))
}

// synchronize discards tokens until a likely statement boundary: right
// after a ';', or right before a keyword that starts a new declaration
// or statement.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.Class, token.Fun, token.Var, token.For,
			token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// --- emission helpers --------------------------------------------------------

func (c *Compiler) emitByte(b byte)             { c.chunk.Write(b, c.previous.Line) }
func (c *Compiler) emitOp(op chunk.OpCode)      { c.chunk.WriteOp(op, c.previous.Line) }
func (c *Compiler) emitOpByte(op chunk.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}
func (c *Compiler) emitReturn() { c.emitOp(chunk.OpReturn) }

// emitConstant adds v to the constant pool and emits the instruction
// that loads it: OP_CONSTANT for the first 256 entries, OP_CONSTANT_LONG
// (a 3-byte little-endian index) beyond that — see design note (b).
func (c *Compiler) emitConstant(v value.Value) {
	idx := c.chunk.AddConstant(v)
	if idx <= chunk.MaxConstantsShort {
		c.emitOpByte(chunk.OpConstant, byte(idx))
		return
	}
	c.emitOp(chunk.OpConstantLong)
	c.emitByte(byte(idx))
	c.emitByte(byte(idx >> 8))
	c.emitByte(byte(idx >> 16))
}

// --- grammar: declarations & statements -------------------------------------

func (c *Compiler) declaration() {
	if c.match(token.Var) {
		c.varDeclaration()
	} else {
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope pops every local declared at the scope being left. One
// OP_POP per local keeps the runtime stack height matching the
// compiler's locals bookkeeping exactly.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitOp(chunk.OpPop)
		c.localCount--
	}
}

// --- grammar: variables ------------------------------------------------------

// parseVariable consumes an identifier and, for a local, declares it in
// the current scope; for a global, interns its name into the constant
// pool and returns the pool index defineVariable will need.
func (c *Compiler) parseVariable(errMsg string) int {
	c.consume(token.Identifier, errMsg)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0 // locals don't need a constant-pool slot
	}
	return c.identifierConstant(c.previous)
}

// identifierConstant interns name's lexeme and adds it to the constant
// pool. Capped at 256 entries (spec.md's 1-byte OP_GET_GLOBAL/
// OP_DEFINE_GLOBAL/OP_SET_GLOBAL operand) — unlike general expression
// constants, global names never spill to OP_CONSTANT_LONG.
func (c *Compiler) identifierConstant(name token.Token) int {
	s := c.interner.CopyString(name.Lexeme)
	idx := c.chunk.AddConstant(value.Obj(s))
	if idx > chunk.MaxConstantsShort {
		c.error("Too many constants in one chunk.")
	}
	return idx
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := c.localCount - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if name.Lexeme == l.name.Lexeme {
			c.error("A variable with this name already exists in the same scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == maxLocals {
		c.error("Only a maximum of 256 local variables is supported.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: -1}
	c.localCount++
}

func (c *Compiler) defineVariable(global int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(chunk.OpDefineGlobal, byte(global))
}

func (c *Compiler) markInitialized() {
	c.locals[c.localCount-1].depth = c.scopeDepth
}

// resolveLocal walks locals newest-to-oldest looking for name. A match
// whose depth is still -1 means the variable is being read from inside
// its own initializer, which is an error.
func (c *Compiler) resolveLocal(name token.Token) int {
	for i := c.localCount - 1; i >= 0; i-- {
		l := c.locals[i]
		if name.Lexeme == l.name.Lexeme {
			if l.depth == -1 {
				c.error("Can't read a local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// --- grammar: expressions -----------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the Pratt engine. It advances once, invokes the
// token just consumed's prefix rule (or reports "Expect expression"),
// then keeps pulling in infix operators whose precedence is at least
// precedence, left-to-right. Assignment is only legal when this call
// was entered at PrecAssignment or looser; canAssign threads that fact
// down to variable() so `1 + 2 = 3` can reject the stray '='.
func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	prefixRule := getRule(c.previous.Kind).prefix
	if prefixRule == nil {
		c.error("Expect expression")
		return
	}

	canAssign := precedence <= PrecAssignment
	prefixRule(c, canAssign)

	for precedence <= getRule(c.current.Kind).precedence {
		c.advance()
		infixRule := getRule(c.previous.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.error("Invalid assignment target.")
	}
}

func number(c *Compiler, _ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

// stringLiteral strips the surrounding quotes and interns the rest.
func stringLiteral(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme
	raw := lexeme[1 : len(lexeme)-1]
	s := c.interner.CopyString(raw)
	c.emitConstant(value.Obj(s))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Kind {
	case token.False:
		c.emitOp(chunk.OpFalse)
	case token.Nil:
		c.emitOp(chunk.OpNil)
	case token.True:
		c.emitOp(chunk.OpTrue)
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case token.Minus:
		c.emitOp(chunk.OpNegate)
	case token.Bang:
		c.emitOp(chunk.OpNot)
	}
}

// binary recurses with precedence+1 so same-precedence operators stay
// left-associative: `a - b - c` parses as `(a - b) - c`.
func binary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	rule := getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BangEqual:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.EqualEqual:
		c.emitOp(chunk.OpEqual)
	case token.Greater:
		c.emitOp(chunk.OpGreater)
	case token.GreaterEqual:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.Less:
		c.emitOp(chunk.OpLess)
	case token.LessEqual:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	case token.Plus:
		c.emitOp(chunk.OpAdd)
	case token.Minus:
		c.emitOp(chunk.OpSubtract)
	case token.Star:
		c.emitOp(chunk.OpMultiply)
	case token.Slash:
		c.emitOp(chunk.OpDivide)
	}
}

func variable(c *Compiler, canAssign bool) {
	namedVariable(c, c.previous, canAssign)
}

func namedVariable(c *Compiler, name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

// --- the Pratt rule table ----------------------------------------------------

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LeftParen:    {prefix: grouping},
		token.Minus:        {prefix: unary, infix: binary, precedence: PrecTerm},
		token.Plus:         {infix: binary, precedence: PrecTerm},
		token.Slash:        {infix: binary, precedence: PrecFactor},
		token.Star:         {infix: binary, precedence: PrecFactor},
		token.Bang:         {prefix: unary},
		token.BangEqual:    {infix: binary, precedence: PrecEquality},
		token.EqualEqual:   {infix: binary, precedence: PrecEquality},
		token.Greater:      {infix: binary, precedence: PrecComparison},
		token.GreaterEqual: {infix: binary, precedence: PrecComparison},
		token.Less:         {infix: binary, precedence: PrecComparison},
		token.LessEqual:    {infix: binary, precedence: PrecComparison},
		token.Identifier:   {prefix: variable},
		token.String:       {prefix: stringLiteral},
		token.Number:       {prefix: number},
		token.False:        {prefix: literal},
		token.Nil:          {prefix: literal},
		token.True:         {prefix: literal},
	}
}

func getRule(kind token.Kind) parseRule {
	return rules[kind]
}
