package parser

import (
	"strings"
	"unicode"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/token"
)

// Lexer tokenizes restricted SQL and OData filter input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	err *LexError // first error encountered
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, Pos: pos, End: len(l.input)}
	}

	var tok token.Token

	switch l.ch {
	case '+':
		tok = l.single(token.PLUS, pos)
	case '-':
		tok = l.single(token.MINUS, pos)
	case '*':
		tok = l.single(token.STAR, pos)
	case '/':
		tok = l.single(token.SLASH, pos)
	case '%':
		tok = l.single(token.PERCENT, pos)
	case '=':
		tok = l.single(token.EQ, pos)
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.double(token.LE, pos)
		case '>':
			tok = l.double(token.NE, pos)
		default:
			tok = l.single(token.LT, pos)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.double(token.GE, pos)
		} else {
			tok = l.single(token.GT, pos)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.double(token.NE, pos)
		} else {
			tok = l.illegal(pos, "unexpected character '!'")
		}
	case '|':
		if l.peekChar() == '|' {
			tok = l.double(token.DPIPE, pos)
		} else {
			tok = l.illegal(pos, "unexpected character '|'")
		}
	case '.':
		tok = l.single(token.DOT, pos)
	case ',':
		tok = l.single(token.COMMA, pos)
	case '(':
		tok = l.single(token.LPAREN, pos)
	case ')':
		tok = l.single(token.RPAREN, pos)
	case ';':
		tok = l.single(token.SEMICOLON, pos)
	case '\'':
		lit, ok := l.readDelimited('\'')
		if !ok {
			return l.illegal(pos, ErrUnterminatedString)
		}
		tok = token.Token{Type: token.STRING, Literal: lit, Pos: pos}
	case '"':
		lit, ok := l.readDelimited('"')
		if !ok {
			return l.illegal(pos, ErrUnterminatedIdent)
		}
		if lit == "" {
			return l.illegal(pos, "empty quoted identifier")
		}
		tok = token.Token{Type: token.QIDENT, Literal: lit, Pos: pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			tok = token.Token{Type: token.LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		case isDigit(l.ch):
			tok = token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		default:
			return l.illegal(pos, "unexpected character '"+string(l.ch)+"'")
		}
	}

	tok.End = l.pos
	return tok
}

// single consumes one character.
func (l *Lexer) single(t token.TokenType, pos token.Position) token.Token {
	lit := string(l.ch)
	l.readChar()
	return token.Token{Type: t, Literal: lit, Pos: pos}
}

// double consumes a two-character operator.
func (l *Lexer) double(t token.TokenType, pos token.Position) token.Token {
	lit := l.input[l.pos : l.pos+2]
	l.readChar()
	l.readChar()
	return token.Token{Type: t, Literal: lit, Pos: pos}
}

// illegal records an error and stops the token stream.
func (l *Lexer) illegal(pos token.Position, msg string) token.Token {
	if l.err == nil {
		l.err = &LexError{Pos: pos, Message: msg}
	}
	lit := l.input[pos.Offset:]
	l.pos, l.readPos, l.ch = len(l.input), len(l.input)+1, 0
	return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos, End: len(l.input)}
}

// skipWhitespaceAndComments skips whitespace, -- line comments and /* */ block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readDelimited reads a quoted token. A doubled delimiter is an escaped
// delimiter: 'it''s' -> it's, "col""name" -> col"name.
// Returns false if the input ends before the closing delimiter.
func (l *Lexer) readDelimited(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.pos < len(l.input) {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar() // skip first quote
				l.readChar() // skip second quote
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent (e.g., 1e10, 1E-5)
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter. Bytes of multi-byte UTF-8
// sequences count as letters so non-ASCII names stay in one token.
func isLetter(ch byte) bool {
	return ch >= 0x80 || unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) ([]token.Token, error) {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			return nil, l.Err()
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, nil
}
