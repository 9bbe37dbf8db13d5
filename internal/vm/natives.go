package vm

import (
	"tadpole/internal/value"
)

// DefineNative binds a host function to the global name, replacing any
// previous binding. arity is value.VariadicArity for any argument count.
func (m *VM) DefineNative(name string, arity int, fn value.NativeFn) {
	ref := m.heap.Alloc(&value.Native{Name: name, Arity: arity, Fn: fn})
	m.globals[name] = value.Obj(ref)
}

// callNative runs n in the current frame. The callee and its arguments are
// replaced by the result.
func (m *VM) callNative(n *value.Native, argc int) *RuntimeError {
	if n.Arity != value.VariadicArity && argc != n.Arity {
		return m.runtimeError("expected %d arguments but got %d", n.Arity, argc)
	}
	args := make([]value.Value, argc)
	copy(args, m.stack[m.sp-argc:m.sp])

	result, err := n.Fn(args)
	if err != nil {
		return m.runtimeError("%s", err.Error())
	}
	m.sp -= argc + 1
	m.stack[m.sp] = result
	m.sp++
	return nil
}
