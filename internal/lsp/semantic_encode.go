package lsp

import (
	"cmp"
	"slices"
)

// EncodeSemanticTokens produces the relative five-integer encoding clients
// expect. The input is not modified.
func EncodeSemanticTokens(toks []SemTok) []uint32 {
	sorted := slices.Clone(toks)
	slices.SortStableFunc(sorted, func(a, b SemTok) int {
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})

	data := make([]uint32, 0, len(sorted)*5)
	prevLine := 1
	prevCol := 1
	for _, t := range sorted {
		if t.Length <= 0 {
			continue
		}
		deltaLine := t.Line - prevLine
		deltaStart := t.Col - 1
		if deltaLine == 0 {
			deltaStart = t.Col - prevCol
		}
		data = append(data,
			uint32(deltaLine),
			uint32(deltaStart),
			uint32(t.Length),
			uint32(t.Type),
			uint32(t.Mods),
		)
		prevLine = t.Line
		prevCol = t.Col
	}
	return data
}
