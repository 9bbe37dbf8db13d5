package compiler

import (
	"fmt"
	"strconv"

	"tadpole/internal/code"
	"tadpole/internal/diag"
	"tadpole/internal/token"
	"tadpole/internal/value"
)

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rule is a function rather than a table so that parse functions may
// recurse into expression without an initialization cycle.
func rule(t token.Type) parseRule {
	switch t {
	case token.LPAREN:
		return parseRule{(*Compiler).grouping, (*Compiler).call, precCall}
	case token.DOT:
		return parseRule{nil, (*Compiler).dot, precCall}
	case token.MINUS:
		return parseRule{(*Compiler).unary, (*Compiler).binary, precTerm}
	case token.PLUS:
		return parseRule{nil, (*Compiler).binary, precTerm}
	case token.SLASH, token.STAR:
		return parseRule{nil, (*Compiler).binary, precFactor}
	case token.BANG:
		return parseRule{(*Compiler).unary, nil, precNone}
	case token.EQ, token.NE:
		return parseRule{nil, (*Compiler).binary, precEquality}
	case token.GT, token.GE, token.LT, token.LE:
		return parseRule{nil, (*Compiler).binary, precComparison}
	case token.IDENT:
		return parseRule{(*Compiler).variable, nil, precNone}
	case token.STRING:
		return parseRule{(*Compiler).stringLiteral, nil, precNone}
	case token.NUMBER:
		return parseRule{(*Compiler).number, nil, precNone}
	case token.AND:
		return parseRule{nil, (*Compiler).and, precAnd}
	case token.OR:
		return parseRule{nil, (*Compiler).or, precOr}
	case token.TRUE, token.FALSE, token.NIL:
		return parseRule{(*Compiler).literal, nil, precNone}
	case token.FUN:
		return parseRule{(*Compiler).functionLiteral, nil, precNone}
	case token.PAIR:
		return parseRule{(*Compiler).pair, nil, precNone}
	}
	return parseRule{}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(p precedence) {
	c.advance()
	prefix := rule(c.previous.Type).prefix
	if prefix == nil {
		c.error(diag.CodeSyntax, "expected expression")
		return
	}

	canAssign := p <= precAssignment
	prefix(c, canAssign)

	for p <= rule(c.current.Type).prec {
		c.advance()
		rule(c.previous.Type).infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error(diag.CodeSyntax, "invalid assignment target")
	}
}

func (c *Compiler) number(bool) {
	n, err := strconv.ParseFloat(c.previous.Literal, 64)
	if err != nil {
		c.error(diag.CodeSyntax, fmt.Sprintf("invalid number literal %q", c.previous.Literal))
		return
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) stringLiteral(bool) {
	c.emitConstant(value.Obj(c.heap.Intern(c.previous.Literal)))
}

func (c *Compiler) literal(bool) {
	switch c.previous.Type {
	case token.TRUE:
		c.emit(code.OpTrue)
	case token.FALSE:
		c.emit(code.OpFalse)
	case token.NIL:
		c.emit(code.OpNil)
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(token.RPAREN, "expected ')' after expression")
}

func (c *Compiler) unary(bool) {
	op := c.previous.Type
	c.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		c.emit(code.OpNegate)
	case token.BANG:
		c.emit(code.OpNot)
	}
}

func (c *Compiler) binary(bool) {
	op := c.previous.Type
	c.parsePrecedence(rule(op).prec + 1)

	switch op {
	case token.PLUS:
		c.emit(code.OpAdd)
	case token.MINUS:
		c.emit(code.OpSub)
	case token.STAR:
		c.emit(code.OpMul)
	case token.SLASH:
		c.emit(code.OpDiv)
	case token.EQ:
		c.emit(code.OpEqual)
	case token.NE:
		c.emit(code.OpEqual)
		c.emit(code.OpNot)
	case token.GT:
		c.emit(code.OpGreater)
	case token.GE:
		c.emit(code.OpGreaterEqual)
	case token.LT:
		c.emit(code.OpLess)
	case token.LE:
		c.emit(code.OpLessEqual)
	}
}

// and leaves the left operand when it is falsey, otherwise the right one.
func (c *Compiler) and(bool) {
	endJump := c.emitJump(code.OpJumpIfFalse)
	c.emit(code.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or leaves the left operand when it is truthy, otherwise the right one.
func (c *Compiler) or(bool) {
	elseJump := c.emitJump(code.OpJumpIfFalse)
	endJump := c.emitJump(code.OpJump)

	c.patchJump(elseJump)
	c.emit(code.OpPop)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Literal, canAssign)
}

// namedVariable resolves name as a local, then a captured variable of an
// enclosing function, and finally as a global looked up at run time.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp code.Opcode
	arg := c.resolveLocal(c.state, name)
	switch {
	case arg != -1:
		getOp, setOp = code.OpGetLocal, code.OpSetLocal
	default:
		if arg = c.resolveUpvalue(c.state, name); arg != -1 {
			getOp, setOp = code.OpGetUpvalue, code.OpSetUpvalue
		} else {
			arg = c.identifierConstant(name)
			getOp, setOp = code.OpGetGlobal, code.OpSetGlobal
		}
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emit(setOp, arg)
		return
	}
	c.emit(getOp, arg)
}

func (c *Compiler) call(bool) {
	argc := c.argumentList()
	c.emit(code.OpCall, argc)
}

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == maxArgs {
				c.error(diag.CodeLimit, "can't have more than 255 arguments")
			}
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after arguments")
	return argc
}

// dot compiles field access on a pair. Only first and second exist.
func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "expected field name after '.'")
	var field int
	switch c.previous.Literal {
	case "first":
		field = code.FieldFirst
	case "second":
		field = code.FieldSecond
	default:
		c.error(diag.CodeSyntax, fmt.Sprintf("unknown field '%s', pairs have 'first' and 'second'", c.previous.Literal))
		return
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emit(code.OpSetPair, field)
		return
	}
	c.emit(code.OpGetPair, field)
}

func (c *Compiler) pair(bool) {
	c.consume(token.LPAREN, "expected '(' after 'pair'")
	c.expression()
	c.consume(token.COMMA, "expected ',' between pair elements")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after pair elements")
	c.emit(code.OpPair)
}

// functionLiteral compiles an anonymous fun expression.
func (c *Compiler) functionLiteral(bool) {
	c.function(kindFunction, "anonymous")
}
