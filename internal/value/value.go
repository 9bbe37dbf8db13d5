package value

import (
	"fmt"
	"strconv"
)

type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "object"
	}
}

// Ref is a generational handle into a heap arena. The zero Ref is the null
// reference.
type Ref struct {
	index uint32 // slot + 1
	gen   uint32
}

func NewRef(slot int, gen uint32) Ref {
	return Ref{index: uint32(slot) + 1, gen: gen}
}

func (r Ref) IsNil() bool { return r.index == 0 }
func (r Ref) Slot() int   { return int(r.index) - 1 }
func (r Ref) Gen() uint32 { return r.gen }
func (r Ref) String() string {
	if r.IsNil() {
		return "ref(nil)"
	}
	return fmt.Sprintf("ref(%d#%d)", r.Slot(), r.gen)
}

// Value is the operand-stack representation of every script value. It is
// copied by value; heap objects are reached through Ref.
type Value struct {
	kind Kind
	num  float64
	ref  Ref
}

func Nil() Value { return Value{} }

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func Obj(r Ref) Value {
	if r.IsNil() {
		return Nil()
	}
	return Value{kind: KindObject, ref: r}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsNil() bool       { return v.kind == KindNil }
func (v Value) IsBool() bool      { return v.kind == KindBool }
func (v Value) IsNumber() bool    { return v.kind == KindNumber }
func (v Value) IsObject() bool    { return v.kind == KindObject }
func (v Value) AsBool() bool      { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsRef() Ref        { return v.ref }

// Falsey reports whether v counts as false in a condition: nil and false.
func Falsey(v Value) bool {
	return v.kind == KindNil || (v.kind == KindBool && v.num == 0)
}

// Equal compares by value for primitives and by identity for objects.
// Interned strings make identity coincide with content equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindNumber:
		return a.num == b.num
	default:
		return a.ref == b.ref
	}
}

// FormatNumber renders a number the way print shows it.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
