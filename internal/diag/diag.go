// Package diag holds positioned compiler diagnostics.
package diag

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic codes reported by the compiler.
const (
	CodeSyntax = "TC0001"
	CodeLex    = "TC0002"
	CodeScope  = "TC0003"
	CodeLimit  = "TC0004"
)

// Range is a 1-based source span on a single line. Length is in bytes and
// at least 1.
type Range struct {
	Line   int
	Col    int
	Length int
}

type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Range    Range
}

// Format renders d as "path:line:col: severity CODE: message".
func (d Diagnostic) Format(path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s", path, d.Range.Line, d.Range.Col, d.Severity)
	if d.Code != "" {
		b.WriteString(" " + d.Code)
	}
	b.WriteString(": " + d.Message)
	return b.String()
}

// FormatAll renders ds one per line in report order. An empty path prints
// as "<input>".
func FormatAll(path string, ds []Diagnostic) string {
	if path == "" {
		path = "<input>"
	}
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.Format(path)
	}
	return strings.Join(lines, "\n")
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
