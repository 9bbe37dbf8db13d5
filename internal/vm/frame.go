package vm

import "tadpole/internal/value"

// Frame is one active call. ip indexes the opcode being executed; base is
// the stack slot holding the callee, so locals start at base+1.
type Frame struct {
	closure value.Ref
	cl      *value.Closure
	fn      *value.Function
	ip      int
	base    int
}

func (f *Frame) Instructions() []byte { return f.fn.Instructions }
