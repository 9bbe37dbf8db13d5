package lsp

import (
	"errors"

	"tadpole/internal/compiler"
	"tadpole/internal/diag"
	"tadpole/internal/heap"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const source = "tadpole"

// Check compiles text into a scratch heap and returns its diagnostics.
func Check(text string) []diag.Diagnostic {
	h := heap.New()
	h.SetThreshold(0)
	defer h.Release()

	_, err := compiler.Compile(h, text)
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return cerr.Diagnostics
	}
	return nil
}

func ToLspDiagnostics(text string, ds []diag.Diagnostic) []protocol.Diagnostic {
	ix := newLineIndex(text)
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		severity := protocol.DiagnosticSeverityError
		switch d.Severity {
		case diag.SeverityWarning:
			severity = protocol.DiagnosticSeverityWarning
		case diag.SeverityInfo:
			severity = protocol.DiagnosticSeverityInformation
		}

		pd := protocol.Diagnostic{
			Range:    ix.span(d.Range.Line, d.Range.Col, d.Range.Length),
			Severity: &severity,
			Source:   ptrString(source),
			Message:  d.Message,
		}
		if d.Code != "" {
			code := protocol.IntegerOrString{Value: d.Code}
			pd.Code = &code
		}
		out = append(out, pd)
	}
	return out
}

func ptrString(s string) *string { return &s }
