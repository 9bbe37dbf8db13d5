package compiler

import (
	"tadpole/internal/code"
	"tadpole/internal/diag"
	"tadpole/internal/token"
	"tadpole/internal/value"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.VAR):
		c.varDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expected variable name")
	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emit(code.OpNil)
	}
	c.consume(token.SEMICOLON, "expected ';' after variable declaration")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expected function name")
	// a function may refer to itself
	c.markInitialized()
	c.function(kindFunction, c.previous.Literal)
	c.defineVariable(global)
}

// parseVariable consumes a name and returns its constant index when it
// names a global.
func (c *Compiler) parseVariable(msg string) int {
	c.consume(token.IDENT, msg)
	c.declareVariable()
	if c.state.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Literal)
}

func (c *Compiler) defineVariable(global int) {
	if c.state.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emit(code.OpDefineGlobal, global)
}

// function compiles a parameter list and body into a new Function and
// emits the OpClosure that instantiates it.
func (c *Compiler) function(kind funcKind, name string) {
	c.beginFunction(kind, name)
	c.beginScope()

	c.consume(token.LPAREN, "expected '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			c.state.fn.Arity++
			if c.state.fn.Arity > maxArgs {
				c.errorAtCurrent(diag.CodeLimit, "can't have more than 255 parameters")
			}
			param := c.parseVariable("expected parameter name")
			c.defineVariable(param)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after parameters")
	c.consume(token.LBRACE, "expected '{' before function body")
	c.block()

	ref := c.endFunction()
	c.emit(code.OpClosure, c.addConstant(value.Obj(ref)))
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

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after expression")
	c.emit(code.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "expected '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	thenJump := c.emitJump(code.OpJumpIfFalse)
	c.emit(code.OpPop)
	c.statement()

	elseJump := c.emitJump(code.OpJump)
	c.patchJump(thenJump)
	c.emit(code.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.instructions())
	c.consume(token.LPAREN, "expected '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	exitJump := c.emitJump(code.OpJumpIfFalse)
	c.emit(code.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(code.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expected '(' after 'for'")
	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.instructions())
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "expected ';' after loop condition")
		exitJump = c.emitJump(code.OpJumpIfFalse)
		c.emit(code.OpPop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(code.OpJump)
		incrementStart := len(c.instructions())
		c.expression()
		c.emit(code.OpPop)
		c.consume(token.RPAREN, "expected ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(code.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.state.kind == kindScript {
		c.error(diag.CodeSyntax, "can't return from top-level code")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after return value")
	c.emit(code.OpReturn)
}
