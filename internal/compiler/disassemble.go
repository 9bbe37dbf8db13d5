package compiler

import (
	"fmt"
	"strings"

	"tadpole/internal/code"
	"tadpole/internal/heap"
	"tadpole/internal/value"
)

// Disassemble renders the function behind ref followed by every function
// nested in its constants, depth first.
func Disassemble(h *heap.Heap, ref value.Ref) string {
	var out strings.Builder
	disassemble(&out, h, ref)
	return out.String()
}

func disassemble(out *strings.Builder, h *heap.Heap, ref value.Ref) {
	fn := h.Function(ref)
	fmt.Fprintf(out, "== %s (arity %d, upvalues %d) ==\n", fn.DisplayName(), fn.Arity, len(fn.Upvalues))
	out.WriteString(code.Format(fn.Instructions, fn.Pos))

	if len(fn.Constants) > 0 {
		out.WriteString("constants:\n")
		for i, k := range fn.Constants {
			fmt.Fprintf(out, "  %d: %s\n", i, h.Stringify(k))
		}
	}

	for _, k := range fn.Constants {
		if h.IsKind(k, value.ObjFunction) {
			out.WriteString("\n")
			disassemble(out, h, k.AsRef())
		}
	}
}
