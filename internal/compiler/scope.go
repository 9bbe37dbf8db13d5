package compiler

import (
	"fmt"

	"tadpole/internal/code"
	"tadpole/internal/diag"
	"tadpole/internal/value"
)

// local is a stack slot of the function being compiled. depth is -1 while
// the variable's initializer is still being compiled.
type local struct {
	name     string
	depth    int
	captured bool
}

func (c *Compiler) beginScope() {
	c.state.scopeDepth++
}

// endScope drops the locals of the innermost block, closing any that a
// closure captured.
func (c *Compiler) endScope() {
	st := c.state
	st.scopeDepth--
	for len(st.locals) > 0 && st.locals[len(st.locals)-1].depth > st.scopeDepth {
		if st.locals[len(st.locals)-1].captured {
			c.emit(code.OpCloseUpvalue)
		} else {
			c.emit(code.OpPop)
		}
		st.locals = st.locals[:len(st.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) {
	st := c.state
	if len(st.locals) >= maxLocals {
		c.error(diag.CodeLimit, "too many local variables in function")
		return
	}
	st.locals = append(st.locals, local{name: name, depth: -1})
}

// declareVariable registers previous as a local of the current block.
// Globals are late bound and need no declaration.
func (c *Compiler) declareVariable() {
	st := c.state
	if st.scopeDepth == 0 {
		return
	}
	name := c.previous.Literal
	for i := len(st.locals) - 1; i >= 0; i-- {
		l := st.locals[i]
		if l.depth != -1 && l.depth < st.scopeDepth {
			break
		}
		if l.name == name {
			c.error(diag.CodeScope, fmt.Sprintf("already a variable named '%s' in this scope", name))
			return
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	st := c.state
	if st.scopeDepth == 0 {
		return
	}
	st.locals[len(st.locals)-1].depth = st.scopeDepth
}

// resolveLocal searches st's locals innermost first.
func (c *Compiler) resolveLocal(st *funcState, name string) int {
	for i := len(st.locals) - 1; i >= 0; i-- {
		l := st.locals[i]
		if l.name != name {
			continue
		}
		if l.depth == -1 {
			c.error(diag.CodeScope, "can't read local variable in its own initializer")
		}
		return i
	}
	return -1
}

// resolveUpvalue finds name in an enclosing function and threads a capture
// through every function in between.
func (c *Compiler) resolveUpvalue(st *funcState, name string) int {
	if st.enclosing == nil {
		return -1
	}
	if idx := c.resolveLocal(st.enclosing, name); idx != -1 {
		st.enclosing.locals[idx].captured = true
		return c.addUpvalue(st, idx, true)
	}
	if idx := c.resolveUpvalue(st.enclosing, name); idx != -1 {
		return c.addUpvalue(st, idx, false)
	}
	return -1
}

func (c *Compiler) addUpvalue(st *funcState, index int, isLocal bool) int {
	for i, u := range st.upvalues {
		if u.Index == index && u.IsLocal == isLocal {
			return i
		}
	}
	if len(st.upvalues) >= maxUpvalues {
		c.error(diag.CodeLimit, "too many closure variables in function")
		return 0
	}
	st.upvalues = append(st.upvalues, value.UpvalueDesc{IsLocal: isLocal, Index: index})
	return len(st.upvalues) - 1
}
