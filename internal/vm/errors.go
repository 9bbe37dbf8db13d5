package vm

import (
	"fmt"
	"strings"

	"tadpole/internal/code"
)

// RuntimeError aborts an interpretation. Line is the source line of the
// faulting instruction; Trace lists the active calls innermost first.
type RuntimeError struct {
	Message string
	Line    int
	Trace   string
}

func (e *RuntimeError) Error() string {
	if e.Trace != "" {
		return strings.TrimRight(e.Trace, "\n")
	}
	return "error: " + e.Message
}

func (m *VM) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	line := 0
	if m.frameCount > 0 {
		f := &m.frames[m.frameCount-1]
		line = code.LookupLine(f.fn.Pos, f.ip)
	}
	return &RuntimeError{
		Message: msg,
		Line:    line,
		Trace:   m.formatStackTrace(msg),
	}
}

func (m *VM) formatStackTrace(message string) string {
	var out strings.Builder
	out.WriteString("error: " + message + "\nstack trace:\n")
	file := m.file
	if file == "" {
		file = "<input>"
	}
	for i := m.frameCount - 1; i >= 0; i-- {
		f := &m.frames[i]
		line, col := code.LookupPos(f.fn.Pos, f.ip)
		fmt.Fprintf(&out, "  at %s (%s:%d:%d)\n", f.fn.DisplayName(), file, line, col)
	}
	return out.String()
}
