package code

import "encoding/binary"

type Opcode byte

const (
	OpConstant Opcode = iota // push constants[operand]
	OpNil
	OpTrue
	OpFalse
	OpPop

	OpGetLocal     // operand: frame slot (1 byte)
	OpSetLocal     // operand: frame slot (1 byte)
	OpGetGlobal    // operand: name constant (2 bytes)
	OpDefineGlobal // operand: name constant (2 bytes)
	OpSetGlobal    // operand: name constant (2 bytes)
	OpGetUpvalue   // operand: closure upvalue index (1 byte)
	OpSetUpvalue   // operand: closure upvalue index (1 byte)

	OpEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual

	OpAdd
	OpSub
	OpMul
	OpDiv

	OpNot
	OpNegate

	OpJump        // operand: absolute address
	OpJumpIfFalse // operand: absolute address; condition stays on the stack

	OpCall         // operand: argument count (1 byte)
	OpClosure      // operand: function constant (2 bytes)
	OpCloseUpvalue // close the upvalue for the top slot, then pop it
	OpReturn

	OpPair    // pop second, pop first, push pair
	OpGetPair // operand: field (0 first, 1 second)
	OpSetPair // operand: field; stack: pair, value -> value
)

const (
	FieldFirst  = 0
	FieldSecond = 1
)

type Instructions []byte

// SourcePos maps the instruction starting at Offset to a source location.
type SourcePos struct {
	Offset int
	Line   int
	Col    int
}

type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:     {"OpConstant", []int{2}},
	OpNil:          {"OpNil", nil},
	OpTrue:         {"OpTrue", nil},
	OpFalse:        {"OpFalse", nil},
	OpPop:          {"OpPop", nil},
	OpGetLocal:     {"OpGetLocal", []int{1}},
	OpSetLocal:     {"OpSetLocal", []int{1}},
	OpGetGlobal:    {"OpGetGlobal", []int{2}},
	OpDefineGlobal: {"OpDefineGlobal", []int{2}},
	OpSetGlobal:    {"OpSetGlobal", []int{2}},
	OpGetUpvalue:   {"OpGetUpvalue", []int{1}},
	OpSetUpvalue:   {"OpSetUpvalue", []int{1}},
	OpEqual:        {"OpEqual", nil},
	OpGreater:      {"OpGreater", nil},
	OpGreaterEqual: {"OpGreaterEqual", nil},
	OpLess:         {"OpLess", nil},
	OpLessEqual:    {"OpLessEqual", nil},
	OpAdd:          {"OpAdd", nil},
	OpSub:          {"OpSub", nil},
	OpMul:          {"OpMul", nil},
	OpDiv:          {"OpDiv", nil},
	OpNot:          {"OpNot", nil},
	OpNegate:       {"OpNegate", nil},
	OpJump:         {"OpJump", []int{2}},
	OpJumpIfFalse:  {"OpJumpIfFalse", []int{2}},
	OpCall:         {"OpCall", []int{1}},
	OpClosure:      {"OpClosure", []int{2}},
	OpCloseUpvalue: {"OpCloseUpvalue", nil},
	OpReturn:       {"OpReturn", nil},
	OpPair:         {"OpPair", nil},
	OpGetPair:      {"OpGetPair", []int{1}},
	OpSetPair:      {"OpSetPair", []int{1}},
}

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func Make(op Opcode, operands ...int) Instructions {
	def, ok := definitions[op]
	if !ok {
		return Instructions{}
	}
	insLen := 1
	for _, w := range def.OperandWidths {
		insLen += w
	}

	ins := make([]byte, insLen)
	ins[0] = byte(op)

	offset := 1
	for i, o := range operands {
		w := def.OperandWidths[i]
		switch w {
		case 1:
			ins[offset] = byte(o)
		case 2:
			binary.BigEndian.PutUint16(ins[offset:], uint16(o))
		}
		offset += w
	}
	return ins
}

func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

// PutUint16 overwrites a 2-byte operand in place; used to patch jumps.
func PutUint16(ins Instructions, v uint16) {
	binary.BigEndian.PutUint16(ins, v)
}

// LookupLine returns the source line for the instruction at ip, or 0 when
// the table has no entry at or before ip.
func LookupLine(pos []SourcePos, ip int) int {
	line, _ := LookupPos(pos, ip)
	return line
}

func LookupPos(pos []SourcePos, ip int) (line, col int) {
	l, r := 0, len(pos)-1
	best := -1
	for l <= r {
		m := (l + r) / 2
		if pos[m].Offset <= ip {
			best = m
			l = m + 1
		} else {
			r = m - 1
		}
	}
	if best == -1 {
		return 0, 0
	}
	return pos[best].Line, pos[best].Col
}
