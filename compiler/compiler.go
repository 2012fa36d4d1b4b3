// Package compiler turns lumen source directly into bytecode in a single
// pass: no AST is ever built. Parsing uses a Pratt (precedence-climbing)
// expression parser; statements are compiled by straightforward recursive
// descent, with the lexer feeding tokens directly into code emission.
package compiler

import (
	"fmt"

	"lumen/bytecode"
	"lumen/lexer"
	"lumen/object"
	"lumen/token"
	"lumen/value"
)

// CompileError reports one or more problems found while compiling source,
// in the style the CLI driver surfaces with exit code 65.
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	msg := "compile error:"
	for _, s := range e.Errors {
		msg += "\n  " + s
	}
	return msg
}

// Precedence orders the binding strength of infix operators, weakest first.
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

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.TokenType]rule

func init() {
	rules = map[token.TokenType]rule{
		token.LPAREN:   {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
		token.LBRACKET: {prefix: (*Compiler).listLiteral, infix: (*Compiler).subscript, precedence: PrecCall},
		token.MINUS:    {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
		token.PLUS:     {infix: (*Compiler).binary, precedence: PrecTerm},
		token.SLASH:    {infix: (*Compiler).binary, precedence: PrecFactor},
		token.STAR:     {infix: (*Compiler).binary, precedence: PrecFactor},
		token.BANG:     {prefix: (*Compiler).unary},
		token.NOT_EQ:   {infix: (*Compiler).binary, precedence: PrecEquality},
		token.EQ:       {infix: (*Compiler).binary, precedence: PrecEquality},
		token.GT:       {infix: (*Compiler).binary, precedence: PrecComparison},
		token.GT_EQ:    {infix: (*Compiler).binary, precedence: PrecComparison},
		token.LT:       {infix: (*Compiler).binary, precedence: PrecComparison},
		token.LT_EQ:    {infix: (*Compiler).binary, precedence: PrecComparison},
		token.NUMBER:   {prefix: (*Compiler).number},
		token.STRING:   {prefix: (*Compiler).string},
		token.IDENT:    {prefix: (*Compiler).variable},
		token.AND:      {infix: (*Compiler).and, precedence: PrecAnd},
		token.OR:       {infix: (*Compiler).or, precedence: PrecOr},
		token.TRUE:     {prefix: (*Compiler).literal},
		token.FALSE:    {prefix: (*Compiler).literal},
		token.NIL:      {prefix: (*Compiler).literal},
		token.FUN:      {prefix: (*Compiler).functionLiteral},
	}
}

func (c *Compiler) rule(t token.TokenType) rule {
	return rules[t]
}

// functionType distinguishes the implicit top-level script function from
// named/anonymous function literals; a `return` statement is a compile error
// in the top-level script.
type functionType int

const (
	typeScript functionType = iota
	typeFunction
)

// compilerScope is the compile-time state for one function body: its own
// chunk under construction, symbol table, and a link back to the function
// it's building -- mirroring the call-frame nesting the VM will have at
// runtime.
type compilerScope struct {
	enclosing *compilerScope
	symbols   *SymbolTable
	function  *object.Function
	fnType    functionType
}

// Compiler drives a single compilation: it owns the token stream and the
// stack of function scopes currently being built.
type Compiler struct {
	lex    *lexer.Lexer
	heap   *object.Heap
	intern *object.Interner

	current token.Token
	prev    token.Token

	scope *compilerScope

	errors []string
}

// New returns a Compiler that will compile source into a top-level Function
// object, allocating strings and functions on heap and interning them
// through intern.
func New(source string, heap *object.Heap, intern *object.Interner) *Compiler {
	c := &Compiler{
		lex:    lexer.New(source),
		heap:   heap,
		intern: intern,
	}

	fn := heap.NewFunction(nil, 0)
	fn.Chunk = bytecode.NewChunk()

	c.scope = &compilerScope{
		symbols: NewSymbolTable(),
		function: fn,
		fnType:  typeScript,
	}

	c.advance()
	return c
}

// Compile parses and compiles the entire token stream, returning the
// top-level Function on success or a *CompileError otherwise.
func (c *Compiler) Compile() (*object.Function, error) {
	for !c.check(token.EOF) {
		c.declaration()
	}

	c.emitReturn()

	if len(c.errors) > 0 {
		return nil, &CompileError{Errors: c.errors}
	}

	return c.scope.function, nil
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.prev = c.current
	for {
		tok := c.lex.NextToken()
		c.current = tok
		if c.current.Type != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(fmt.Sprintf("unexpected character %q", c.current.Literal))
	}
}

func (c *Compiler) check(t token.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.TokenType, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) {
	c.errors = append(c.errors, fmt.Sprintf("[line %d] %s (at %q)", c.current.Line, msg, c.current.Literal))
}

func (c *Compiler) errorAtPrev(msg string) {
	c.errors = append(c.errors, fmt.Sprintf("[line %d] %s", c.prev.Line, msg))
}

// --- emission helpers ---

func (c *Compiler) chunk() *bytecode.Chunk {
	return c.scope.function.Chunk
}

func (c *Compiler) emitByte(b byte, line int) {
	c.chunk().Write(b, line)
}

func (c *Compiler) emit(op bytecode.Opcode, operands ...int) int {
	ins := bytecode.Make(op, operands...)
	pos := len(c.chunk().Code)
	for _, b := range ins {
		c.emitByte(b, c.prev.Line)
	}
	return pos
}

func (c *Compiler) emitReturn() {
	c.emit(bytecode.OpNil)
	c.emit(bytecode.OpReturn)
}

func (c *Compiler) emitJump(op bytecode.Opcode) int {
	c.emit(op, 0xFFFF)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(pos int) {
	target := len(c.chunk().Code) - pos - 2
	code := c.chunk().Code
	code[pos] = byte(uint16(target) >> 8)
	code[pos+1] = byte(uint16(target))
}

func (c *Compiler) emitLoop(loopStart int) {
	offset := len(c.chunk().Code) - loopStart + 3
	c.emit(bytecode.OpLoop, offset)
}

func (c *Compiler) addConstant(v value.Value) int {
	return c.chunk().AddConstant(v)
}

func (c *Compiler) identifierConstant(name string) int {
	return c.addConstant(value.FromObject(c.intern.CopyString(name)))
}

// --- declarations & statements ---

func (c *Compiler) declaration() {
	switch {
	case c.match(token.LET):
		c.letDeclaration()
	case c.match(token.FUNC):
		c.funcDeclaration()
	default:
		c.statement()
	}
}

func (c *Compiler) letDeclaration() {
	c.consume(token.IDENT, "expected variable name")
	name := c.prev.Literal

	hasInitializer := c.match(token.ASSIGN)
	if hasInitializer {
		c.expression()
	}
	c.consume(token.SEMI, "expected ';' after variable declaration")

	sym := c.declareVariable(name)

	if sym.Scope == GlobalScope && !hasInitializer {
		// A global declared without an initializer is never bound in the
		// globals table at all -- only `let name = expr;` emits
		// OP_DEFINE_GLOBAL. Reading such a name afterwards is therefore an
		// undefined-global-read runtime error rather than nil.
		return
	}

	if !hasInitializer {
		c.emit(bytecode.OpNil)
	}
	c.defineVariable(sym)
}

func (c *Compiler) declareVariable(name string) Symbol {
	return c.scope.symbols.Define(name)
}

func (c *Compiler) defineVariable(sym Symbol) {
	if sym.Scope == GlobalScope {
		nameIdx := c.identifierConstant(sym.Name)
		c.emit(bytecode.OpDefineGlobal, nameIdx)
		return
	}
	// Locals simply stay where the initializer left them on the stack.
}

func (c *Compiler) funcDeclaration() {
	c.consume(token.IDENT, "expected function name")
	name := c.prev.Literal

	sym := c.declareVariable(name)
	c.function(name, typeFunction)
	c.defineVariable(sym)
}

// function compiles a function body (shared by named `func` declarations
// and anonymous `fun` literals) into its own chunk, then emits OP_CLOSURE
// in the enclosing scope to wrap it with its captured upvalues.
func (c *Compiler) function(name string, fnType functionType) {
	enclosing := c.scope

	fn := c.heap.NewFunction(nil, 0)
	if name != "" {
		fn.Name = c.intern.CopyString(name)
	}
	fn.Chunk = bytecode.NewChunk()

	c.scope = &compilerScope{
		enclosing: enclosing,
		symbols:   NewEnclosedSymbolTable(enclosing.symbols),
		function:  fn,
		fnType:    fnType,
	}

	// Slot 0 of every frame is reserved for the closure itself (see
	// ReserveReceiverSlot), so parameters start at slot 1. A named
	// function additionally registers its own name under FunctionScope,
	// enabling direct recursive calls without an upvalue.
	c.scope.symbols.ReserveReceiverSlot()
	if name != "" {
		c.scope.symbols.DefineFunctionName(name)
	}

	c.consume(token.LPAREN, "expected '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			fn.Arity++
			c.consume(token.IDENT, "expected parameter name")
			c.declareVariable(c.prev.Literal)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after parameters")
	c.consume(token.LBRACE, "expected '{' before function body")
	c.block()

	c.emitReturn()

	fn.UpvalueCount = len(c.scope.symbols.Upvalues)
	upvalues := c.scope.symbols.Upvalues

	c.scope = enclosing

	fnIdx := c.addConstant(value.FromObject(fn))
	c.emit(bytecode.OpClosure, fnIdx, len(upvalues))
	for _, u := range upvalues {
		isLocal := 0
		if u.IsLocal {
			isLocal = 1
		}
		c.emitByte(byte(isLocal), c.prev.Line)
		c.emitByte(byte(u.Index), c.prev.Line)
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.PRINT):
		c.printStatement()
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
	c.consume(token.RBRACE, "expected '}' after block")
}

func (c *Compiler) beginScope() {
	c.scope.symbols.BeginScope()
}

func (c *Compiler) endScope() {
	// EndScope clears the captured flags of the locals it removes, so read
	// them before calling it.
	captured := make(map[int]bool, len(c.scope.symbols.capturedIdx))
	for idx := range c.scope.symbols.capturedIdx {
		captured[idx] = true
	}
	popped := c.scope.symbols.EndScope()
	for _, sym := range popped {
		if captured[sym.Index] {
			c.emit(bytecode.OpCloseUpvalue)
		} else {
			c.emit(bytecode.OpPop)
		}
	}
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "expected '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emit(bytecode.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)

	c.consume(token.LPAREN, "expected '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(bytecode.OpPop)
}

// forStatement desugars `for (init; cond; post) body` into the equivalent
// while loop, wrapped in its own block. Inside a function body a declared
// init variable is a local of that block and doesn't leak into the
// enclosing scope; at the top level `let` always defines a global, so the
// init variable stays defined after the loop.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expected '(' after 'for'")

	switch {
	case c.match(token.SEMI):
		// no initializer
	case c.match(token.LET):
		c.letDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)

	exitJump := -1
	if !c.check(token.SEMI) {
		c.expression()
		c.consume(token.SEMI, "expected ';' after loop condition")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emit(bytecode.OpPop)
	} else {
		c.consume(token.SEMI, "expected ';' after loop condition")
	}

	if !c.check(token.RPAREN) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk().Code)

		c.expression()
		c.emit(bytecode.OpPop)
		c.consume(token.RPAREN, "expected ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.consume(token.RPAREN, "expected ')' after for clauses")
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(bytecode.OpPop)
	}

	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.scope.fnType == typeScript {
		c.errorAtPrev("cannot return from top-level script")
	}

	if c.match(token.SEMI) {
		c.emit(bytecode.OpNil)
		c.emit(bytecode.OpReturn)
		return
	}

	c.expression()
	c.consume(token.SEMI, "expected ';' after return value")
	c.emit(bytecode.OpReturn)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMI, "expected ';' after value")
	c.emit(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMI, "expected ';' after expression")
	c.emit(bytecode.OpPop)
}

// --- expressions ---

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := c.rule(c.prev.Type).prefix
	if prefix == nil {
		c.errorAtPrev("expected expression")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= c.rule(c.current.Type).precedence {
		c.advance()
		infix := c.rule(c.prev.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.errorAtPrev("invalid assignment target")
	}
}

func (c *Compiler) number(canAssign bool) {
	var n float64
	fmt.Sscanf(c.prev.Literal, "%g", &n)
	c.emit(bytecode.OpConstant, c.addConstant(value.Number(n)))
}

func (c *Compiler) string(canAssign bool) {
	s := c.intern.CopyString(c.prev.Literal)
	c.emit(bytecode.OpConstant, c.addConstant(value.FromObject(s)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Type {
	case token.TRUE:
		c.emit(bytecode.OpTrue)
	case token.FALSE:
		c.emit(bytecode.OpFalse)
	case token.NIL:
		c.emit(bytecode.OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "expected ')' after expression")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.prev.Type
	c.parsePrecedence(PrecUnary)

	switch opType {
	case token.MINUS:
		c.emit(bytecode.OpNegate)
	case token.BANG:
		c.emit(bytecode.OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.prev.Type
	r := c.rule(opType)
	c.parsePrecedence(r.precedence + 1)

	switch opType {
	case token.PLUS:
		c.emit(bytecode.OpAdd)
	case token.MINUS:
		c.emit(bytecode.OpSubtract)
	case token.STAR:
		c.emit(bytecode.OpMultiply)
	case token.SLASH:
		c.emit(bytecode.OpDivide)
	case token.EQ:
		c.emit(bytecode.OpEqual)
	case token.NOT_EQ:
		c.emit(bytecode.OpEqual)
		c.emit(bytecode.OpNot)
	case token.GT:
		c.emit(bytecode.OpGreater)
	case token.GT_EQ:
		c.emit(bytecode.OpLess)
		c.emit(bytecode.OpNot)
	case token.LT:
		c.emit(bytecode.OpLess)
	case token.LT_EQ:
		c.emit(bytecode.OpGreater)
		c.emit(bytecode.OpNot)
	}
}

func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)

	c.patchJump(elseJump)
	c.emit(bytecode.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emit(bytecode.OpCall, argCount)
}

func (c *Compiler) argumentList() int {
	argCount := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after arguments")
	return argCount
}

func (c *Compiler) listLiteral(canAssign bool) {
	count := 0
	if !c.check(token.RBRACKET) {
		for {
			c.expression()
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RBRACKET, "expected ']' after list elements")
	c.emit(bytecode.OpBuildList, count)
}

func (c *Compiler) subscript(canAssign bool) {
	c.expression()
	c.consume(token.RBRACKET, "expected ']' after index")

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emit(bytecode.OpStoreSubscr)
		return
	}
	c.emit(bytecode.OpIndexSubscr)
}

func (c *Compiler) functionLiteral(canAssign bool) {
	c.function("", typeFunction)
}

func (c *Compiler) variable(canAssign bool) {
	name := c.prev.Literal
	sym, ok := c.scope.symbols.Resolve(name)
	if !ok {
		// A name not declared in this compilation unit (a native, or a global
		// from an earlier REPL line) is looked up by name at runtime;
		// OP_GET_GLOBAL / OP_SET_GLOBAL report it if it is undefined.
		sym = Symbol{Name: name, Scope: GlobalScope}
	}

	var getOp, setOp bytecode.Opcode
	switch sym.Scope {
	case GlobalScope:
		setOp, getOp = bytecode.OpSetGlobal, bytecode.OpGetGlobal
	case FreeScope:
		setOp, getOp = bytecode.OpSetUpvalue, bytecode.OpGetUpvalue
	case FunctionScope:
		c.emit(bytecode.OpGetLocal, 0)
		return
	default:
		setOp, getOp = bytecode.OpSetLocal, bytecode.OpGetLocal
	}

	operand := sym.Index
	if sym.Scope == GlobalScope {
		operand = c.identifierConstant(name)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emit(setOp, operand)
		return
	}

	c.emit(getOp, operand)
}
