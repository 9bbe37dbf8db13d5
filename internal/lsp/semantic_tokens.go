package lsp

import (
	"strings"

	"tadpole/internal/lexer"
	"tadpole/internal/token"
)

func scan(text string) []token.Token {
	lx := lexer.New(text)
	var toks []token.Token
	for {
		tok := lx.NextToken()
		if tok.Type == token.EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

// SemanticTokensForText returns unencoded semantic tokens for the given
// source text. Columns and lengths are in bytes.
func SemanticTokensForText(text string) []SemTok {
	toks := scan(text)
	sem := make([]SemTok, 0, len(toks))
	inParams := false
	for i, tok := range toks {
		var prev, next token.Type
		if i > 0 {
			prev = toks[i-1].Type
		}
		if i+1 < len(toks) {
			next = toks[i+1].Type
		}

		switch tok.Type {
		case token.ERROR:
			continue
		case token.STRING:
			sem = append(sem, stringTokens(tok)...)
			continue
		case token.LPAREN:
			// fun name( or an anonymous fun(
			if prev == token.FUN || (prev == token.IDENT && i > 1 && toks[i-2].Type == token.FUN) {
				inParams = true
			}
			continue
		case token.RPAREN:
			inParams = false
			continue
		case token.IDENT:
			sem = append(sem, SemTok{
				Line:   tok.Line,
				Col:    tok.Col,
				Length: len(tok.Literal),
				Type:   identType(tok, prev, next, inParams),
				Mods:   identMods(tok, prev, inParams),
			})
			continue
		}

		tt, ok := Classify(tok)
		if !ok {
			continue
		}
		sem = append(sem, SemTok{Line: tok.Line, Col: tok.Col, Length: len(tok.Literal), Type: tt})
	}
	return sem
}

func identType(tok token.Token, prev, next token.Type, inParams bool) int {
	switch {
	case inParams:
		return ttParameter
	case prev == token.FUN:
		return ttFunction
	case prev == token.DOT:
		return ttProperty
	case next == token.LPAREN:
		return ttFunction
	}
	return ttVariable
}

func identMods(tok token.Token, prev token.Type, inParams bool) int {
	mods := 0
	if inParams || prev == token.FUN || prev == token.VAR {
		mods |= modDecl
	}
	if builtins[tok.Literal] && prev != token.VAR && prev != token.FUN && prev != token.DOT {
		mods |= modDefaultLibrary
	}
	return mods
}

// stringTokens splits a string literal, quotes included, into one token per
// source line.
func stringTokens(tok token.Token) []SemTok {
	parts := strings.Split(`"`+tok.Literal+`"`, "\n")
	out := make([]SemTok, 0, len(parts))
	for i, part := range parts {
		col := 1
		if i == 0 {
			col = tok.Col
		}
		if len(part) == 0 {
			continue
		}
		out = append(out, SemTok{Line: tok.Line + i, Col: col, Length: len(part), Type: ttString})
	}
	return out
}
