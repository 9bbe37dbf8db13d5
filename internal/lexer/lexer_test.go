package lexer

import (
	"testing"

	"tadpole/internal/token"
)

func TestLexer_Program(t *testing.T) {
	input := `fun add(a, b) {
  return a + b;
}

var x = add(2, 3.5);
if (x >= 3 and !(x == 4)) {
  print("big");
} else {
  x = nil;
}
var p = pair(true, false);
p.first = p.second;`

	tests := []struct {
		typ token.Type
		lit string
	}{
		{token.FUN, "fun"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "a"},
		{token.PLUS, "+"},
		{token.IDENT, "b"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},

		{token.VAR, "var"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.NUMBER, "2"},
		{token.COMMA, ","},
		{token.NUMBER, "3.5"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},

		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.GE, ">="},
		{token.NUMBER, "3"},
		{token.AND, "and"},
		{token.BANG, "!"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.EQ, "=="},
		{token.NUMBER, "4"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "print"},
		{token.LPAREN, "("},
		{token.STRING, "big"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NIL, "nil"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},

		{token.VAR, "var"},
		{token.IDENT, "p"},
		{token.ASSIGN, "="},
		{token.PAIR, "pair"},
		{token.LPAREN, "("},
		{token.TRUE, "true"},
		{token.COMMA, ","},
		{token.FALSE, "false"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},

		{token.IDENT, "p"},
		{token.DOT, "."},
		{token.IDENT, "first"},
		{token.ASSIGN, "="},
		{token.IDENT, "p"},
		{token.DOT, "."},
		{token.IDENT, "second"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.typ {
			t.Fatalf("tests[%d] - wrong type. expected=%q got=%q (lit=%q line=%d col=%d)",
				i, tt.typ, tok.Type, tok.Literal, tok.Line, tok.Col)
		}

		if tok.Literal != tt.lit {
			t.Fatalf("tests[%d] - wrong literal. expected=%q got=%q (type=%q line=%d col=%d)",
				i, tt.lit, tok.Literal, tok.Type, tok.Line, tok.Col)
		}
	}
}

func TestLexer_Operators(t *testing.T) {
	input := "- * / < <= > >= != = == or"
	want := []token.Type{
		token.MINUS, token.STAR, token.SLASH,
		token.LT, token.LE, token.GT, token.GE,
		token.NE, token.ASSIGN, token.EQ, token.OR,
		token.EOF,
	}
	l := New(input)
	for i, tt := range want {
		if tok := l.NextToken(); tok.Type != tt {
			t.Fatalf("i=%d expected=%q got=%q (%q)", i, tt, tok.Type, tok.Literal)
		}
	}
}

func TestLexer_Positions(t *testing.T) {
	input := "var a;\n  a = 10;"
	tests := []struct {
		typ       token.Type
		line, col int
	}{
		{token.VAR, 1, 1},
		{token.IDENT, 1, 5},
		{token.SEMICOLON, 1, 6},
		{token.IDENT, 2, 3},
		{token.ASSIGN, 2, 5},
		{token.NUMBER, 2, 7},
		{token.SEMICOLON, 2, 9},
		{token.EOF, 2, 10},
	}
	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Line != tt.line || tok.Col != tt.col {
			t.Fatalf("tests[%d] - expected %s at %d:%d, got %s at %d:%d",
				i, tt.typ, tt.line, tt.col, tok.Type, tok.Line, tok.Col)
		}
	}
}

func TestLexer_NumberForms(t *testing.T) {
	tests := []struct {
		input string
		lits  []string
	}{
		{"12", []string{"12"}},
		{"1.25", []string{"1.25"}},
		// a trailing dot is not part of the number
		{"3.", []string{"3", "."}},
		{".5", []string{".", "5"}},
	}
	for _, tt := range tests {
		l := New(tt.input)
		for i, lit := range tt.lits {
			tok := l.NextToken()
			if tok.Literal != lit {
				t.Fatalf("%q[%d]: expected %q, got %q", tt.input, i, lit, tok.Literal)
			}
		}
		if tok := l.NextToken(); tok.Type != token.EOF {
			t.Fatalf("%q: expected EOF, got %q", tt.input, tok.Type)
		}
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
		col   int
	}{
		{"@", "unexpected character '@'", 1},
		{"a # b", "unexpected character '#'", 3},
		{`x = "open`, "unterminated string", 5},
	}
	for _, tt := range tests {
		l := New(tt.input)
		var tok token.Token
		for tok = l.NextToken(); tok.Type != token.ERROR; tok = l.NextToken() {
			if tok.Type == token.EOF {
				t.Fatalf("%q: expected an ERROR token", tt.input)
			}
		}
		if tok.Literal != tt.msg || tok.Col != tt.col {
			t.Fatalf("%q: expected %q at col %d, got %q at col %d", tt.input, tt.msg, tt.col, tok.Literal, tok.Col)
		}
	}
}

func TestLexer_EOFIsSticky(t *testing.T) {
	l := New("x")
	l.NextToken()
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != token.EOF {
			t.Fatalf("call %d: expected EOF, got %q", i, tok.Type)
		}
	}
}

func TestLookupIdent(t *testing.T) {
	if token.LookupIdent("while") != token.WHILE {
		t.Fatal("expected while to be a keyword")
	}
	if token.LookupIdent("first") != token.IDENT {
		t.Fatal("expected field names to lex as identifiers")
	}
}
