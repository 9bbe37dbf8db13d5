package code

import (
	"fmt"
	"strings"
)

// ReadOperands decodes the operands that follow an opcode. ins must hold at
// least the widths def declares.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, w := range def.OperandWidths {
		switch w {
		case 1:
			operands[i] = int(ins[offset])
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		default:
			panic("unsupported operand width")
		}
		offset += w
	}
	return operands, offset
}

// Width returns the encoded length of the instruction starting with op.
func Width(op Opcode) int {
	def, ok := Lookup(op)
	if !ok {
		return 1
	}
	n := 1
	for _, w := range def.OperandWidths {
		n += w
	}
	return n
}

func (ins Instructions) String() string {
	return Format(ins, nil)
}

// Format lists one instruction per line. With a position table each line
// also carries its source line, or "|" when it repeats the previous one.
// Unknown and truncated instructions are shown rather than rejected.
func Format(ins Instructions, pos []SourcePos) string {
	var out strings.Builder
	prevLine := -1
	for ip := 0; ip < len(ins); {
		fmt.Fprintf(&out, "%04d ", ip)
		if pos != nil {
			line := LookupLine(pos, ip)
			if line == prevLine {
				out.WriteString("   | ")
			} else {
				fmt.Fprintf(&out, "%4d ", line)
			}
			prevLine = line
		}

		op := Opcode(ins[ip])
		def, ok := Lookup(op)
		switch {
		case !ok:
			fmt.Fprintf(&out, "UNKNOWN_OPCODE %d\n", op)
			ip++
			continue
		case ip+Width(op) > len(ins):
			fmt.Fprintf(&out, "%s TRUNCATED\n", def.Name)
			return out.String()
		}

		operands, read := ReadOperands(def, ins[ip+1:])
		out.WriteString(def.Name)
		for _, o := range operands {
			fmt.Fprintf(&out, " %d", o)
		}
		out.WriteByte('\n')
		ip += 1 + read
	}
	return out.String()
}
