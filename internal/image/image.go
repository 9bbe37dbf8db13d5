// Package image stores compiled programs as CBOR so they can run without
// recompiling. An image is a magic prefix followed by a canonical CBOR
// encoding of Program.
package image

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"tadpole/internal/code"
	"tadpole/internal/heap"
	"tadpole/internal/value"
)

// Version is bumped whenever the instruction set or layout changes.
const Version = 1

var magic = []byte("\x89TPC")

var ErrNotImage = errors.New("image: missing magic header")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type Program struct {
	Version int    `cbor:"1,keyasint"`
	File    string `cbor:"2,keyasint,omitempty"`
	Main    *Proto `cbor:"3,keyasint"`
}

// Proto is a heap-independent copy of a compiled Function.
type Proto struct {
	Name      string     `cbor:"1,keyasint,omitempty"`
	Arity     int        `cbor:"2,keyasint"`
	Code      []byte     `cbor:"3,keyasint"`
	Constants []Constant `cbor:"4,keyasint,omitempty"`
	Upvalues  []Upvalue  `cbor:"5,keyasint,omitempty"`
	Pos       []Pos      `cbor:"6,keyasint,omitempty"`
}

type ConstKind uint8

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstNumber
	ConstString
	ConstFunction
)

type Constant struct {
	Kind   ConstKind `cbor:"1,keyasint"`
	Bool   bool      `cbor:"2,keyasint,omitempty"`
	Number float64   `cbor:"3,keyasint,omitempty"`
	String string    `cbor:"4,keyasint,omitempty"`
	Fn     *Proto    `cbor:"5,keyasint,omitempty"`
}

type Upvalue struct {
	IsLocal bool `cbor:"1,keyasint"`
	Index   int  `cbor:"2,keyasint"`
}

type Pos struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Col    int `cbor:"3,keyasint"`
}

// IsImage reports whether data starts with the image header.
func IsImage(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// FromFunction copies the function tree rooted at ref out of h.
func FromFunction(h *heap.Heap, ref value.Ref, file string) (*Program, error) {
	main, err := fromFunction(h, ref)
	if err != nil {
		return nil, err
	}
	return &Program{Version: Version, File: file, Main: main}, nil
}

func fromFunction(h *heap.Heap, ref value.Ref) (*Proto, error) {
	fn := h.Function(ref)
	p := &Proto{
		Name:  fn.Name,
		Arity: fn.Arity,
		Code:  append([]byte(nil), fn.Instructions...),
	}
	for _, u := range fn.Upvalues {
		p.Upvalues = append(p.Upvalues, Upvalue{IsLocal: u.IsLocal, Index: u.Index})
	}
	for _, sp := range fn.Pos {
		p.Pos = append(p.Pos, Pos{Offset: sp.Offset, Line: sp.Line, Col: sp.Col})
	}
	for i, k := range fn.Constants {
		c, err := fromValue(h, k)
		if err != nil {
			return nil, fmt.Errorf("image: %s constant %d: %w", fn.DisplayName(), i, err)
		}
		p.Constants = append(p.Constants, c)
	}
	return p, nil
}

func fromValue(h *heap.Heap, v value.Value) (Constant, error) {
	switch v.Kind() {
	case value.KindNil:
		return Constant{Kind: ConstNil}, nil
	case value.KindBool:
		return Constant{Kind: ConstBool, Bool: v.AsBool()}, nil
	case value.KindNumber:
		return Constant{Kind: ConstNumber, Number: v.AsNumber()}, nil
	}
	switch o := h.Get(v.AsRef()).(type) {
	case *value.String:
		return Constant{Kind: ConstString, String: o.Value}, nil
	case *value.Function:
		fn, err := fromFunction(h, v.AsRef())
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstFunction, Fn: fn}, nil
	default:
		return Constant{}, fmt.Errorf("unsupported constant of type %s", o.Kind())
	}
}

func Marshal(p *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("image: marshal: %w", err)
	}
	return append(append([]byte(nil), magic...), body...), nil
}

// Unmarshal decodes and verifies an image.
func Unmarshal(data []byte) (*Program, error) {
	if !IsImage(data) {
		return nil, ErrNotImage
	}
	var p Program
	if err := cbor.Unmarshal(data[len(magic):], &p); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("image: unsupported version %d (want %d)", p.Version, Version)
	}
	if p.Main == nil {
		return nil, errors.New("image: missing main function")
	}
	if err := verify(p.Main); err != nil {
		return nil, err
	}
	return &p, nil
}

// maxLocals bounds captured local slots; locals are addressed by one byte.
const maxLocals = 256

// verify checks that every operand of p and its nested functions is in
// range, so a corrupt image fails here instead of inside the interpreter.
func verify(p *Proto) error {
	if len(p.Upvalues) != 0 {
		return fmt.Errorf("image: %s: main function cannot capture upvalues", p.Name)
	}
	return verifyProto(p)
}

func verifyProto(p *Proto) error {
	ins := code.Instructions(p.Code)
	starts := make([]bool, len(ins))
	var jumps []int
	last := code.Opcode(0)

	for ip := 0; ip < len(ins); {
		op := code.Opcode(ins[ip])
		def, ok := code.Lookup(op)
		if !ok {
			return fmt.Errorf("image: %s: unknown opcode %d at %d", p.Name, op, ip)
		}
		width := code.Width(op)
		if ip+width > len(ins) {
			return fmt.Errorf("image: %s: truncated %s at %d", p.Name, def.Name, ip)
		}
		operands, _ := code.ReadOperands(def, ins[ip+1:])

		switch op {
		case code.OpConstant:
			if operands[0] >= len(p.Constants) {
				return fmt.Errorf("image: %s: constant %d out of range at %d", p.Name, operands[0], ip)
			}
		case code.OpGetGlobal, code.OpSetGlobal, code.OpDefineGlobal:
			if operands[0] >= len(p.Constants) || p.Constants[operands[0]].Kind != ConstString {
				return fmt.Errorf("image: %s: bad global name %d at %d", p.Name, operands[0], ip)
			}
		case code.OpGetUpvalue, code.OpSetUpvalue:
			if operands[0] >= len(p.Upvalues) {
				return fmt.Errorf("image: %s: upvalue %d out of range at %d", p.Name, operands[0], ip)
			}
		case code.OpClosure:
			if operands[0] >= len(p.Constants) || p.Constants[operands[0]].Kind != ConstFunction {
				return fmt.Errorf("image: %s: bad closure constant %d at %d", p.Name, operands[0], ip)
			}
		case code.OpJump, code.OpJumpIfFalse:
			jumps = append(jumps, ip)
		}
		starts[ip] = true
		last = op
		ip += width
	}

	if len(ins) == 0 || last != code.OpReturn {
		return fmt.Errorf("image: %s: code does not end in OpReturn", p.Name)
	}
	for _, ip := range jumps {
		target := int(code.ReadUint16(ins[ip+1:]))
		if target >= len(ins) || !starts[target] {
			return fmt.Errorf("image: %s: jump target %d out of range at %d", p.Name, target, ip)
		}
	}

	for _, c := range p.Constants {
		if c.Kind != ConstFunction {
			continue
		}
		if c.Fn == nil {
			return fmt.Errorf("image: %s: empty function constant", p.Name)
		}
		for i, u := range c.Fn.Upvalues {
			limit := len(p.Upvalues)
			if u.IsLocal {
				limit = maxLocals
			}
			if u.Index < 0 || u.Index >= limit {
				return fmt.Errorf("image: %s: upvalue %d of %s captures %d, out of range", p.Name, i, c.Fn.Name, u.Index)
			}
		}
		if err := verifyProto(c.Fn); err != nil {
			return err
		}
	}
	return nil
}

// loader keeps every function allocated by Load reachable until the whole
// tree is linked.
type loader struct {
	h    *heap.Heap
	refs []value.Ref
}

func (l *loader) MarkRoots(h *heap.Heap) {
	for _, r := range l.refs {
		h.MarkRef(r)
	}
}

// Load allocates the program's functions in h and returns the main
// function. Strings are interned.
func Load(h *heap.Heap, p *Program) (value.Ref, error) {
	if p == nil || p.Main == nil {
		return value.Ref{}, errors.New("image: missing main function")
	}
	l := &loader{h: h}
	h.AddRoots(l)
	defer h.RemoveRoots(l)
	return l.load(p.Main), nil
}

func (l *loader) load(p *Proto) value.Ref {
	fn := &value.Function{
		Name:         p.Name,
		Arity:        p.Arity,
		Instructions: append(code.Instructions(nil), p.Code...),
		Constants:    make([]value.Value, 0, len(p.Constants)),
	}
	for _, u := range p.Upvalues {
		fn.Upvalues = append(fn.Upvalues, value.UpvalueDesc{IsLocal: u.IsLocal, Index: u.Index})
	}
	for _, sp := range p.Pos {
		fn.Pos = append(fn.Pos, code.SourcePos{Offset: sp.Offset, Line: sp.Line, Col: sp.Col})
	}
	ref := l.h.Alloc(fn)
	l.refs = append(l.refs, ref)

	for _, c := range p.Constants {
		var v value.Value
		switch c.Kind {
		case ConstBool:
			v = value.Bool(c.Bool)
		case ConstNumber:
			v = value.Number(c.Number)
		case ConstString:
			v = value.Obj(l.h.Intern(c.String))
		case ConstFunction:
			v = value.Obj(l.load(c.Fn))
		}
		fn.Constants = append(fn.Constants, v)
	}
	return ref
}
