package lsp

import (
	"tadpole/internal/token"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DocumentSymbols lists named functions at any depth and variables declared
// at the top level. Function bodies become the children of their symbol.
func DocumentSymbols(text string) []protocol.DocumentSymbol {
	ix := newLineIndex(text)
	toks := scan(text)

	type open struct {
		sym   protocol.DocumentSymbol
		depth int
	}
	var (
		root  []protocol.DocumentSymbol
		stack []open
		depth int
	)
	add := func(sym protocol.DocumentSymbol) {
		if n := len(stack); n > 0 {
			stack[n-1].sym.Children = append(stack[n-1].sym.Children, sym)
			return
		}
		root = append(root, sym)
	}

	var pending *protocol.DocumentSymbol
	for i, tok := range toks {
		switch tok.Type {
		case token.FUN, token.VAR:
			if i+1 >= len(toks) || toks[i+1].Type != token.IDENT {
				continue
			}
			name := toks[i+1]
			sel := ix.span(name.Line, name.Col, len(name.Literal))
			sym := protocol.DocumentSymbol{
				Name:           name.Literal,
				Range:          protocol.Range{Start: ix.position(tok.Line, tok.Col), End: sel.End},
				SelectionRange: sel,
			}
			if tok.Type == token.FUN {
				sym.Kind = protocol.SymbolKindFunction
				pending = &sym
				continue
			}
			if len(stack) == 0 && depth == 0 {
				sym.Kind = protocol.SymbolKindVariable
				add(sym)
			}
		case token.LBRACE:
			depth++
			if pending != nil {
				stack = append(stack, open{sym: *pending, depth: depth})
				pending = nil
			}
		case token.RBRACE:
			if n := len(stack); n > 0 && stack[n-1].depth == depth {
				done := stack[n-1].sym
				done.Range.End = ix.span(tok.Line, tok.Col, 1).End
				stack = stack[:n-1]
				add(done)
			}
			if depth > 0 {
				depth--
			}
		}
	}
	// unterminated bodies still produce symbols
	for len(stack) > 0 {
		n := len(stack)
		done := stack[n-1].sym
		stack = stack[:n-1]
		add(done)
	}
	if root == nil {
		root = []protocol.DocumentSymbol{}
	}
	return root
}
