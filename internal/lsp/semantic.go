package lsp

import "tadpole/internal/token"

// semantic token type indices, in TokenTypes order
const (
	ttKeyword = iota
	ttString
	ttNumber
	ttOperator
	ttFunction
	ttVariable
	ttParameter
	ttProperty
)

const (
	modDecl = 1 << iota
	modDefaultLibrary
)

// TokenTypes is the semantic token legend advertised to clients.
var TokenTypes = []string{
	"keyword",
	"string",
	"number",
	"operator",
	"function",
	"variable",
	"parameter",
	"property",
}

// TokenModifiers is the modifier legend advertised to clients.
var TokenModifiers = []string{
	"declaration",
	"defaultLibrary",
}

type SemTok struct {
	Line   int
	Col    int
	Length int
	Type   int
	Mods   int
}

// builtins are the globals installed before any script runs.
var builtins = map[string]bool{
	"print":    true,
	"clock":    true,
	"exit":     true,
	"gc":       true,
	"heapSize": true,
}

func Classify(tok token.Token) (int, bool) {
	switch tok.Type {
	case token.NUMBER:
		return ttNumber, true
	case token.STRING:
		return ttString, true
	case token.IDENT:
		return ttVariable, true
	case token.ASSIGN, token.PLUS, token.MINUS, token.STAR, token.SLASH, token.BANG,
		token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE, token.DOT:
		return ttOperator, true
	}
	if token.IsKeyword(tok.Type) {
		return ttKeyword, true
	}
	return 0, false
}
