package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"tadpole/internal/code"
	"tadpole/internal/compiler"
	"tadpole/internal/config"
	"tadpole/internal/heap"
	"tadpole/internal/limits"
	"tadpole/internal/logging"
	"tadpole/internal/value"
)

const (
	DefaultStackSize = 16384
	DefaultMaxFrames = 256
)

// Result is the outcome of one interpretation.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultCompileError:
		return "ECOMPILE"
	case ResultRuntimeError:
		return "ERUNTIME"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

var errStackOverflow = errors.New("stack overflow")

// VM interprets compiled functions. A VM is used by one goroutine at a
// time; only Stop may be called concurrently.
type VM struct {
	heap *heap.Heap
	file string

	stack []value.Value
	sp    int

	frames     []Frame
	frameCount int

	globals      map[string]value.Value
	openUpvalues []value.Ref

	stopped  atomic.Bool
	maxSteps int64
	budget   *limits.Budget

	errOut io.Writer
}

func New() *VM {
	return NewWithConfig(config.Default())
}

// NewWithConfig builds a VM with its own heap tuned by cfg.
func NewWithConfig(cfg config.Config) *VM {
	h := heap.New()
	h.SetThreshold(cfg.GC.Threshold)
	h.SetMinThreshold(cfg.GC.MinThreshold)
	h.SetGrowth(cfg.GC.Growth)
	h.SetStress(cfg.GC.Stress)

	stackSize := cfg.VM.StackSize
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	maxFrames := cfg.VM.MaxFrames
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}

	m := &VM{
		heap:    h,
		stack:   make([]value.Value, stackSize),
		frames:  make([]Frame, maxFrames),
		globals: map[string]value.Value{},
		errOut:  os.Stderr,
	}
	m.SetMaxSteps(cfg.VM.MaxSteps)
	h.AddRoots(m)
	return m
}

func (m *VM) Heap() *heap.Heap { return m.heap }

// SetFile names the source in diagnostics and stack traces.
func (m *VM) SetFile(name string) { m.file = name }

// SetErrorOutput redirects compile and runtime error reports. A nil writer
// discards them.
func (m *VM) SetErrorOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	m.errOut = w
}

// SetMaxSteps bounds the instructions one interpretation may execute.
// Zero is unlimited.
func (m *VM) SetMaxSteps(max int64) {
	if max < 0 {
		max = 0
	}
	m.maxSteps = max
	m.budget = limits.NewBudget(max)
}

// SetMaxFrames resizes the call stack. It has no effect while a script is
// running.
func (m *VM) SetMaxFrames(n int) {
	if n <= 0 || m.frameCount > 0 {
		return
	}
	m.frames = make([]Frame, n)
}

// Global returns the value bound to a global name.
func (m *VM) Global(name string) (value.Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// Stop makes the dispatch loop return before its next instruction. It is
// safe to call from any goroutine.
func (m *VM) Stop() { m.stopped.Store(true) }

func (m *VM) Stopped() bool { return m.stopped.Load() }

// Reset discards the stack, frames and open upvalues left behind by an
// aborted run and clears the stop flag. Globals survive. InterpretFunction
// does the same on entry, so a VM stopped by exit() runs the next chunk.
func (m *VM) Reset() {
	m.resetStack()
	m.stopped.Store(false)
}

func (m *VM) resetStack() {
	for i := 0; i < m.sp; i++ {
		m.stack[i] = value.Nil()
	}
	m.sp = 0
	m.frameCount = 0
	m.openUpvalues = nil
}

// Free releases every heap object. The VM must not be used afterwards.
func (m *VM) Free() {
	m.heap.RemoveRoots(m)
	m.globals = nil
	m.resetStack()
	m.heap.Release()
}

// Interpret compiles and runs source. Errors are also reported on the
// error output.
func (m *VM) Interpret(source string) (Result, error) {
	fn, err := compiler.NewWithFile(m.heap, m.file).Compile(source)
	if err != nil {
		fmt.Fprintln(m.errOut, err)
		return ResultCompileError, err
	}
	return m.InterpretFunction(fn)
}

// InterpretFunction runs an already compiled top-level function. A Stop
// issued before the call is discarded.
func (m *VM) InterpretFunction(fn value.Ref) (Result, error) {
	m.resetStack()
	m.stopped.Store(false)
	m.budget.Reset()

	// the function stays rooted on the stack while its closure is allocated
	m.stack[0] = value.Obj(fn)
	m.sp = 1
	cl := &value.Closure{Fn: fn}
	ref := m.heap.Alloc(cl)
	m.stack[0] = value.Obj(ref)

	if rerr := m.call(ref, cl, 0); rerr != nil {
		return m.fail(rerr)
	}

	if rerr := m.run(); rerr != nil {
		return m.fail(rerr)
	}

	logging.Logger("vm").Debugf("finished %s after %d instructions, %d live objects",
		m.heap.Function(fn).DisplayName(), m.budget.Used(), m.heap.Live())
	return ResultOK, nil
}

func (m *VM) fail(rerr *RuntimeError) (Result, error) {
	fmt.Fprint(m.errOut, rerr.Trace)
	return ResultRuntimeError, rerr
}

func (m *VM) push(v value.Value) error {
	if m.sp >= len(m.stack) {
		return errStackOverflow
	}
	m.stack[m.sp] = v
	m.sp++
	return nil
}

func (m *VM) pop() value.Value {
	m.sp--
	return m.stack[m.sp]
}

func (m *VM) peek(distance int) value.Value {
	return m.stack[m.sp-1-distance]
}

func (m *VM) run() *RuntimeError {
	frame := &m.frames[m.frameCount-1]

	for {
		if m.stopped.Load() {
			return nil
		}
		if err := m.budget.Charge(1); err != nil {
			return m.runtimeError("%s", err.Error())
		}

		frame.ip++
		ins := frame.fn.Instructions
		if frame.ip >= len(ins) {
			return m.runtimeError("unexpected end of instructions")
		}
		op := code.Opcode(ins[frame.ip])

		switch op {
		case code.OpConstant:
			idx := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip += 2
			if err := m.push(frame.fn.Constants[idx]); err != nil {
				return m.runtimeError("%s", err.Error())
			}

		case code.OpNil, code.OpTrue, code.OpFalse:
			v := value.Nil()
			if op != code.OpNil {
				v = value.Bool(op == code.OpTrue)
			}
			if err := m.push(v); err != nil {
				return m.runtimeError("%s", err.Error())
			}

		case code.OpPop:
			m.pop()

		case code.OpGetLocal:
			slot := int(ins[frame.ip+1])
			frame.ip++
			if err := m.push(m.stack[frame.base+slot]); err != nil {
				return m.runtimeError("%s", err.Error())
			}

		case code.OpSetLocal:
			slot := int(ins[frame.ip+1])
			frame.ip++
			m.stack[frame.base+slot] = m.peek(0)

		case code.OpGetGlobal:
			name := m.constantName(frame, ins)
			v, ok := m.globals[name]
			if !ok {
				return m.runtimeError("undefined variable '%s'", name)
			}
			if err := m.push(v); err != nil {
				return m.runtimeError("%s", err.Error())
			}

		case code.OpDefineGlobal:
			name := m.constantName(frame, ins)
			m.globals[name] = m.peek(0)
			m.pop()

		case code.OpSetGlobal:
			name := m.constantName(frame, ins)
			if _, ok := m.globals[name]; !ok {
				return m.runtimeError("undefined variable '%s'", name)
			}
			m.globals[name] = m.peek(0)

		case code.OpGetUpvalue:
			idx := int(ins[frame.ip+1])
			frame.ip++
			uv := m.heap.Upvalue(frame.cl.Upvalues[idx])
			v := uv.Closed()
			if uv.IsOpen() {
				v = m.stack[uv.Slot()]
			}
			if err := m.push(v); err != nil {
				return m.runtimeError("%s", err.Error())
			}

		case code.OpSetUpvalue:
			idx := int(ins[frame.ip+1])
			frame.ip++
			uv := m.heap.Upvalue(frame.cl.Upvalues[idx])
			if uv.IsOpen() {
				m.stack[uv.Slot()] = m.peek(0)
			} else {
				uv.SetClosed(m.peek(0))
			}

		case code.OpEqual:
			b := m.pop()
			a := m.pop()
			m.stack[m.sp] = value.Bool(value.Equal(a, b))
			m.sp++

		case code.OpGreater, code.OpGreaterEqual, code.OpLess, code.OpLessEqual,
			code.OpAdd, code.OpSub, code.OpMul, code.OpDiv:
			if rerr := m.execNumericOp(op); rerr != nil {
				return rerr
			}

		case code.OpNot:
			m.stack[m.sp-1] = value.Bool(value.Falsey(m.peek(0)))

		case code.OpNegate:
			v := m.peek(0)
			if !v.IsNumber() {
				return m.runtimeError("operand must be a number, got %s", m.heap.TypeName(v))
			}
			m.stack[m.sp-1] = value.Number(-v.AsNumber())

		case code.OpJump:
			target := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip = target - 1

		case code.OpJumpIfFalse:
			target := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip += 2
			if value.Falsey(m.peek(0)) {
				frame.ip = target - 1
			}

		case code.OpCall:
			argc := int(ins[frame.ip+1])
			frame.ip++
			if rerr := m.callValue(m.peek(argc), argc); rerr != nil {
				return rerr
			}
			frame = &m.frames[m.frameCount-1]

		case code.OpClosure:
			idx := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip += 2
			if rerr := m.makeClosure(frame, frame.fn.Constants[idx].AsRef()); rerr != nil {
				return rerr
			}

		case code.OpCloseUpvalue:
			m.closeUpvalues(m.sp - 1)
			m.pop()

		case code.OpReturn:
			result := m.pop()
			m.closeUpvalues(frame.base)
			m.frameCount--
			m.sp = frame.base
			if m.frameCount == 0 {
				return nil
			}
			m.stack[m.sp] = result
			m.sp++
			frame = &m.frames[m.frameCount-1]

		case code.OpPair:
			// both halves stay on the stack until the pair owns them
			p := &value.Pair{First: m.peek(1), Second: m.peek(0)}
			ref := m.heap.Alloc(p)
			m.sp -= 2
			m.stack[m.sp] = value.Obj(ref)
			m.sp++

		case code.OpGetPair:
			field := int(ins[frame.ip+1])
			frame.ip++
			target := m.peek(0)
			if !m.heap.IsKind(target, value.ObjPair) {
				return m.runtimeError("only pairs have fields, got %s", m.heap.TypeName(target))
			}
			m.stack[m.sp-1] = m.heap.Pair(target.AsRef()).Get(field)

		case code.OpSetPair:
			field := int(ins[frame.ip+1])
			frame.ip++
			v := m.peek(0)
			target := m.peek(1)
			if !m.heap.IsKind(target, value.ObjPair) {
				return m.runtimeError("only pairs have fields, got %s", m.heap.TypeName(target))
			}
			m.heap.Pair(target.AsRef()).Set(field, v)
			m.sp--
			m.stack[m.sp-1] = v

		default:
			return m.runtimeError("unknown opcode %d", op)
		}
	}
}

// constantName reads a u16 name operand and returns the global's name.
func (m *VM) constantName(frame *Frame, ins []byte) string {
	idx := int(code.ReadUint16(ins[frame.ip+1:]))
	frame.ip += 2
	return m.heap.Str(frame.fn.Constants[idx].AsRef()).Value
}

func (m *VM) execNumericOp(op code.Opcode) *RuntimeError {
	a, b := m.peek(1), m.peek(0)
	if !a.IsNumber() || !b.IsNumber() {
		return m.runtimeError("operands must be numbers, got %s and %s",
			m.heap.TypeName(a), m.heap.TypeName(b))
	}
	x, y := a.AsNumber(), b.AsNumber()

	var res value.Value
	switch op {
	case code.OpGreater:
		res = value.Bool(x > y)
	case code.OpGreaterEqual:
		res = value.Bool(x >= y)
	case code.OpLess:
		res = value.Bool(x < y)
	case code.OpLessEqual:
		res = value.Bool(x <= y)
	case code.OpAdd:
		res = value.Number(x + y)
	case code.OpSub:
		res = value.Number(x - y)
	case code.OpMul:
		res = value.Number(x * y)
	case code.OpDiv:
		res = value.Number(x / y)
	}
	m.sp--
	m.stack[m.sp-1] = res
	return nil
}

func (m *VM) callValue(callee value.Value, argc int) *RuntimeError {
	if callee.IsObject() {
		switch o := m.heap.Get(callee.AsRef()).(type) {
		case *value.Closure:
			return m.call(callee.AsRef(), o, argc)
		case *value.Native:
			return m.callNative(o, argc)
		}
	}
	return m.runtimeError("can only call functions")
}

func (m *VM) call(ref value.Ref, cl *value.Closure, argc int) *RuntimeError {
	fn := m.heap.Function(cl.Fn)
	if argc != fn.Arity {
		return m.runtimeError("expected %d arguments but got %d", fn.Arity, argc)
	}
	if m.frameCount == len(m.frames) {
		return m.runtimeError("stack overflow")
	}
	m.frames[m.frameCount] = Frame{
		closure: ref,
		cl:      cl,
		fn:      fn,
		ip:      -1,
		base:    m.sp - argc - 1,
	}
	m.frameCount++
	return nil
}

// makeClosure instantiates the function fnRef and captures its upvalues
// from the enclosing frame.
func (m *VM) makeClosure(frame *Frame, fnRef value.Ref) *RuntimeError {
	fn := m.heap.Function(fnRef)
	cl := &value.Closure{Fn: fnRef, Upvalues: make([]value.Ref, len(fn.Upvalues))}
	ref := m.heap.Alloc(cl)
	if err := m.push(value.Obj(ref)); err != nil {
		return m.runtimeError("%s", err.Error())
	}
	for i, d := range fn.Upvalues {
		if d.IsLocal {
			cl.Upvalues[i] = m.captureUpvalue(frame.base + d.Index)
		} else {
			cl.Upvalues[i] = frame.cl.Upvalues[d.Index]
		}
	}
	return nil
}
