package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// lineIndex converts the lexer's 1-based byte columns into LSP positions,
// which count UTF-16 code units from 0.
type lineIndex struct {
	lines []string
}

func newLineIndex(text string) lineIndex {
	return lineIndex{lines: strings.Split(text, "\n")}
}

func (ix lineIndex) lineText(line int) string {
	if line <= 0 || line > len(ix.lines) {
		return ""
	}
	return ix.lines[line-1]
}

func (ix lineIndex) position(line, col int) protocol.Position {
	if line <= 0 {
		return protocol.Position{}
	}
	return protocol.Position{
		Line:      uint32(line - 1),
		Character: byteColToUTF16(ix.lineText(line), col),
	}
}

// span returns the range of n bytes starting at line:col, at least one
// character wide.
func (ix lineIndex) span(line, col, n int) protocol.Range {
	start := ix.position(line, col)
	text := ix.lineText(line)
	from := min(max(col-1, 0), len(text))
	to := min(from+max(n, 0), len(text))
	width := uint32(utf16Len(text[from:to]))
	if width == 0 {
		width = 1
	}
	end := protocol.Position{Line: start.Line, Character: start.Character + width}
	return protocol.Range{Start: start, End: end}
}

func byteColToUTF16(lineText string, byteCol int) uint32 {
	if byteCol <= 1 {
		return 0
	}
	limit := byteCol - 1
	if limit > len(lineText) {
		limit = len(lineText)
	}
	return uint32(utf16Len(lineText[:limit]))
}

func utf16Len(s string) int {
	count := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		count += n
	}
	return count
}

// EndPositionUTF16 returns the LSP position at the end of text, using UTF-16 code units.
func EndPositionUTF16(text string) protocol.Position {
	var line uint32
	var col uint32
	for _, r := range text {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		col += uint32(n)
	}
	return protocol.Position{Line: line, Character: col}
}
