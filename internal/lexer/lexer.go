package lexer

import (
	"fmt"

	"tadpole/internal/token"
)

type Lexer struct {
	input string

	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination

	line int // 1-based
	col  int // 1-based column of current char
}

func New(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0, // readChar() will advance to col=1 for first char
	}
	l.readChar()
	return l
}

// NextToken scans the next token. Once the input is exhausted every call
// returns EOF.
func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		break
	}

	if l.ch == 0 && l.position >= len(l.input) {
		return l.newToken(token.EOF, "", l.line, l.col)
	}

	startLine, startCol := l.line, l.col

	switch l.ch {
	case '(':
		return l.single(token.LPAREN, startLine, startCol)
	case ')':
		return l.single(token.RPAREN, startLine, startCol)
	case '{':
		return l.single(token.LBRACE, startLine, startCol)
	case '}':
		return l.single(token.RBRACE, startLine, startCol)
	case ',':
		return l.single(token.COMMA, startLine, startCol)
	case '.':
		return l.single(token.DOT, startLine, startCol)
	case ';':
		return l.single(token.SEMICOLON, startLine, startCol)
	case '+':
		return l.single(token.PLUS, startLine, startCol)
	case '-':
		return l.single(token.MINUS, startLine, startCol)
	case '*':
		return l.single(token.STAR, startLine, startCol)
	case '/':
		// // comments were handled above
		return l.single(token.SLASH, startLine, startCol)
	case '=':
		return l.oneOrTwo(token.ASSIGN, token.EQ, startLine, startCol)
	case '!':
		return l.oneOrTwo(token.BANG, token.NE, startLine, startCol)
	case '<':
		return l.oneOrTwo(token.LT, token.LE, startLine, startCol)
	case '>':
		return l.oneOrTwo(token.GT, token.GE, startLine, startCol)
	case '"':
		return l.readStringToken(startLine, startCol)
	}

	if isIdentStart(l.ch) {
		lit := l.readIdentifier()
		return l.newToken(token.LookupIdent(lit), lit, startLine, startCol)
	}

	if isDigit(l.ch) {
		return l.newToken(token.NUMBER, l.readNumber(), startLine, startCol)
	}

	tok := l.newToken(token.ERROR, fmt.Sprintf("unexpected character %q", l.ch), startLine, startCol)
	l.readChar()
	return tok
}

func (l *Lexer) newToken(t token.Type, lit string, line, col int) token.Token {
	return token.Token{
		Type:    t,
		Literal: lit,
		Line:    line,
		Col:     col,
	}
}

func (l *Lexer) single(t token.Type, line, col int) token.Token {
	tok := l.newToken(t, string(t), line, col)
	l.readChar()
	return tok
}

// oneOrTwo emits two when the current char is followed by '='.
func (l *Lexer) oneOrTwo(one, two token.Type, line, col int) token.Token {
	if l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return l.newToken(two, string(two), line, col)
	}
	return l.single(one, line, col)
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		// EOF sits one column past the last character.
		if l.position < len(l.input) || l.col == 0 {
			if l.ch == '\n' {
				l.line++
				l.col = 1
			} else {
				l.col++
			}
		}
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}

	// Line/col bookkeeping happens when leaving a newline.
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.position < len(l.input) {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

// readStringToken scans a double-quoted string. Strings may span lines and
// carry no escape sequences.
func (l *Lexer) readStringToken(startLine, startCol int) token.Token {
	l.readChar() // opening quote
	start := l.position
	for l.ch != '"' {
		if l.position >= len(l.input) {
			return l.newToken(token.ERROR, "unterminated string", startLine, startCol)
		}
		l.readChar()
	}
	lit := l.input[start:l.position]
	l.readChar() // closing quote
	return l.newToken(token.STRING, lit, startLine, startCol)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
