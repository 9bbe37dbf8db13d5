package compiler

import (
	"fmt"

	"tadpole/internal/code"
	"tadpole/internal/diag"
	"tadpole/internal/heap"
	"tadpole/internal/lexer"
	"tadpole/internal/token"
	"tadpole/internal/value"
)

const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxArgs      = 255
	maxConstants = 1 << 16
	maxJump      = 0xFFFF
)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
)

// funcState is the compilation scope of one function body.
type funcState struct {
	enclosing  *funcState
	fn         *value.Function
	ref        value.Ref
	kind       funcKind
	locals     []local
	upvalues   []value.UpvalueDesc
	scopeDepth int
}

// Error carries every diagnostic of a failed compilation.
type Error struct {
	File        string
	Diagnostics []diag.Diagnostic
}

func (e *Error) Error() string {
	return diag.FormatAll(e.File, e.Diagnostics)
}

// Compiler turns source text into a top-level Function in a single pass.
// While Compile runs it is registered as a heap root so that functions
// under construction survive collections triggered by constant allocation.
type Compiler struct {
	heap *heap.Heap
	lx   *lexer.Lexer
	file string

	current  token.Token
	previous token.Token

	state *funcState

	diags     []diag.Diagnostic
	panicMode bool
}

func New(h *heap.Heap) *Compiler {
	return &Compiler{heap: h}
}

func NewWithFile(h *heap.Heap, file string) *Compiler {
	c := New(h)
	c.file = file
	return c
}

// Compile compiles one source unit. On failure the returned error is an
// *Error listing every diagnostic found.
func Compile(h *heap.Heap, source string) (value.Ref, error) {
	return New(h).Compile(source)
}

func (c *Compiler) Compile(source string) (value.Ref, error) {
	c.lx = lexer.New(source)
	c.diags = nil
	c.panicMode = false
	c.state = nil

	c.heap.AddRoots(c)
	defer c.heap.RemoveRoots(c)

	c.beginFunction(kindScript, "")
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	ref := c.endFunction()

	if diag.HasErrors(c.diags) {
		return value.Ref{}, &Error{File: c.file, Diagnostics: c.Diagnostics()}
	}
	return ref, nil
}

// Diagnostics returns the diagnostics of the last Compile call.
func (c *Compiler) Diagnostics() []diag.Diagnostic {
	return append([]diag.Diagnostic(nil), c.diags...)
}

// MarkRoots marks every function still being compiled.
func (c *Compiler) MarkRoots(h *heap.Heap) {
	for st := c.state; st != nil; st = st.enclosing {
		h.MarkRef(st.ref)
	}
}

func (c *Compiler) beginFunction(kind funcKind, name string) {
	fn := &value.Function{Name: name}
	st := &funcState{
		enclosing: c.state,
		fn:        fn,
		ref:       c.heap.Alloc(fn),
		kind:      kind,
	}
	// slot 0 holds the callee
	st.locals = append(st.locals, local{name: "", depth: 0})
	c.state = st
}

func (c *Compiler) endFunction() value.Ref {
	c.emitReturn()
	st := c.state
	st.fn.Upvalues = st.upvalues
	c.state = st.enclosing
	return st.ref
}

func (c *Compiler) instructions() code.Instructions {
	return c.state.fn.Instructions
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	fn := c.state.fn
	ins := code.Make(op, operands...)
	pos := len(fn.Instructions)
	fn.Instructions = append(fn.Instructions, ins...)
	if c.previous.Line != 0 {
		fn.Pos = append(fn.Pos, code.SourcePos{
			Offset: pos,
			Line:   c.previous.Line,
			Col:    c.previous.Col,
		})
	}
	return pos
}

func (c *Compiler) emitReturn() {
	c.emit(code.OpNil)
	c.emit(code.OpReturn)
}

func (c *Compiler) addConstant(v value.Value) int {
	fn := c.state.fn
	if len(fn.Constants) >= maxConstants {
		c.error(diag.CodeLimit, "too many constants in one function")
		return 0
	}
	fn.Constants = append(fn.Constants, v)
	return len(fn.Constants) - 1
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emit(code.OpConstant, c.addConstant(v))
}

// identifierConstant returns the constant index of name, reusing an
// existing entry when the function already refers to it.
func (c *Compiler) identifierConstant(name string) int {
	v := value.Obj(c.heap.Intern(name))
	for i, k := range c.state.fn.Constants {
		if value.Equal(k, v) {
			return i
		}
	}
	return c.addConstant(v)
}

// emitJump emits a jump with a placeholder target and returns its offset.
func (c *Compiler) emitJump(op code.Opcode) int {
	return c.emit(op, maxJump)
}

func (c *Compiler) patchJump(at int) {
	c.patchJumpTo(at, len(c.instructions()))
}

func (c *Compiler) patchJumpTo(at, target int) {
	if target > maxJump {
		c.error(diag.CodeLimit, "too much code to jump over")
		return
	}
	code.PutUint16(c.instructions()[at+1:], uint16(target))
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emit(code.OpJump, loopStart)
}

// ---- token stream ----

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lx.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(diag.CodeLex, c.current.Literal)
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, msg string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(diag.CodeSyntax, msg)
}

// ---- errors ----

func (c *Compiler) error(code, msg string) {
	c.errorAt(c.previous, code, msg)
}

func (c *Compiler) errorAtCurrent(code, msg string) {
	c.errorAt(c.current, code, msg)
}

// errorAt records a diagnostic unless the compiler is already recovering
// from an earlier error in the same statement.
func (c *Compiler) errorAt(tok token.Token, code, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	length := len(tok.Literal)
	switch tok.Type {
	case token.EOF:
		msg = "at end: " + msg
		length = 1
	case token.ERROR:
		length = 1
	default:
		msg = fmt.Sprintf("at '%s': %s", tok.Literal, msg)
	}
	if length == 0 {
		length = 1
	}
	c.diags = append(c.diags, diag.Diagnostic{
		Code:     code,
		Message:  msg,
		Severity: diag.SeverityError,
		Range:    diag.Range{Line: tok.Line, Col: tok.Col, Length: length},
	})
}

// synchronize skips to a likely statement boundary after an error.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for !c.check(token.EOF) {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.RETURN:
			return
		}
		c.advance()
	}
}
