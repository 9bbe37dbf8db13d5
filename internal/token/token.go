package token

type Type string

type Token struct {
	Type Type
	// Literal is the lexeme, or the message for ERROR tokens.
	Literal string
	Line    int
	Col     int
}

const (
	// Special
	ERROR Type = "ERROR"
	EOF   Type = "EOF"

	// Identifiers + literals
	IDENT  Type = "IDENT"
	NUMBER Type = "NUMBER"
	STRING Type = "STRING"

	// Keywords
	VAR    Type = "VAR"
	FUN    Type = "FUN"
	RETURN Type = "RETURN"
	IF     Type = "IF"
	ELSE   Type = "ELSE"
	WHILE  Type = "WHILE"
	FOR    Type = "FOR"
	TRUE   Type = "TRUE"
	FALSE  Type = "FALSE"
	NIL    Type = "NIL"
	AND    Type = "AND"
	OR     Type = "OR"
	PAIR   Type = "PAIR"

	// Operators
	ASSIGN Type = "="
	PLUS   Type = "+"
	MINUS  Type = "-"
	STAR   Type = "*"
	SLASH  Type = "/"
	BANG   Type = "!"

	EQ Type = "=="
	NE Type = "!="
	LT Type = "<"
	LE Type = "<="
	GT Type = ">"
	GE Type = ">="

	// Delimiters
	COMMA     Type = ","
	DOT       Type = "."
	SEMICOLON Type = ";"
	LPAREN    Type = "("
	RPAREN    Type = ")"
	LBRACE    Type = "{"
	RBRACE    Type = "}"
)

var keywords = map[string]Type{
	"var":    VAR,
	"fun":    FUN,
	"return": RETURN,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"true":   TRUE,
	"false":  FALSE,
	"nil":    NIL,
	"and":    AND,
	"or":     OR,
	"pair":   PAIR,
}

func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t Type) bool {
	for _, k := range keywords {
		if k == t {
			return true
		}
	}
	return false
}
