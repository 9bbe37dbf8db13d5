package value

import "tadpole/internal/code"

type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjPair
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjNative
)

func (k ObjKind) String() string {
	switch k {
	case ObjString:
		return "string"
	case ObjPair:
		return "pair"
	case ObjFunction:
		return "function"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjNative:
		return "native"
	default:
		return "unknown"
	}
}

// Object is implemented only by the heap variants in this file.
type Object interface {
	Kind() ObjKind
	sealed()
}

type String struct {
	Value string
}

func (*String) Kind() ObjKind { return ObjString }
func (*String) sealed()       {}

type Pair struct {
	First  Value
	Second Value
}

func (*Pair) Kind() ObjKind { return ObjPair }
func (*Pair) sealed()       {}

// Get returns the field selected by code.FieldFirst / code.FieldSecond.
func (p *Pair) Get(field int) Value {
	if field == code.FieldFirst {
		return p.First
	}
	return p.Second
}

func (p *Pair) Set(field int, v Value) {
	if field == code.FieldFirst {
		p.First = v
		return
	}
	p.Second = v
}

// UpvalueDesc tells OpClosure where to find a captured variable: a slot of
// the enclosing frame (IsLocal) or an upvalue of the enclosing closure.
type UpvalueDesc struct {
	IsLocal bool
	Index   int
}

type Function struct {
	Arity        int
	Instructions code.Instructions
	Constants    []Value
	Name         string
	Upvalues     []UpvalueDesc
	Pos          []code.SourcePos
}

func (*Function) Kind() ObjKind { return ObjFunction }
func (*Function) sealed()       {}

// DisplayName is the name used in stack traces.
func (f *Function) DisplayName() string {
	if f.Name == "" {
		return "<script>"
	}
	return f.Name
}

type Closure struct {
	Fn       Ref
	Upvalues []Ref
}

func (*Closure) Kind() ObjKind { return ObjClosure }
func (*Closure) sealed()       {}

// Upvalue is Open(slot) until Close moves the slot's value into the
// upvalue itself. The transition happens once.
type Upvalue struct {
	open   bool
	slot   int
	closed Value
}

func NewOpenUpvalue(slot int) *Upvalue {
	return &Upvalue{open: true, slot: slot}
}

func NewClosedUpvalue(v Value) *Upvalue {
	return &Upvalue{closed: v}
}

func (*Upvalue) Kind() ObjKind { return ObjUpvalue }
func (*Upvalue) sealed()       {}

func (u *Upvalue) IsOpen() bool { return u.open }

// Slot is the stack slot of an open upvalue.
func (u *Upvalue) Slot() int { return u.slot }

// Closed is the owned value of a closed upvalue.
func (u *Upvalue) Closed() Value { return u.closed }

// SetClosed stores into a closed upvalue.
func (u *Upvalue) SetClosed(v Value) { u.closed = v }

func (u *Upvalue) Close(v Value) {
	if !u.open {
		return
	}
	u.open = false
	u.closed = v
}

// NativeFn is a host function. Returning an error raises a runtime error
// carrying the error's message.
type NativeFn func(args []Value) (Value, error)

// VariadicArity marks natives that accept any argument count.
const VariadicArity = -1

type Native struct {
	Name  string
	Arity int
	Fn    NativeFn
}

func (*Native) Kind() ObjKind { return ObjNative }
func (*Native) sealed()       {}
