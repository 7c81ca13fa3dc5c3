package parser

import (
	"strconv"
	"strings"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/token"
)

// Fragments are the clause texts of a restricted SELECT statement:
//
//	SELECT <fields> FROM <table> [WHERE <cond>] [ORDER BY <cols>] [LIMIT <n>] [OFFSET <n>]
//
// Clause texts are sliced verbatim from the input and trimmed.
type Fragments struct {
	Fields   string
	Distinct bool
	Table    string // last component of the FROM reference
	Schema   string // qualification dropped from Table, if any
	Where    string
	OrderBy  string
	Limit    *int
	Offset   *int
}

// Extract decomposes a restricted SELECT statement into its fragments.
// Keywords are matched case-insensitively and only outside string literals,
// quoted identifiers and parentheses.
func Extract(query string) (*Fragments, error) {
	tokens, err := Tokenize(query)
	if err != nil {
		return nil, err
	}

	e := &extractor{src: query, tokens: tokens}
	return e.run()
}

type extractor struct {
	src    string
	tokens []token.Token
	pos    int
}

func (e *extractor) cur() token.Token {
	return e.tokens[e.pos]
}

func (e *extractor) peek() token.Token {
	if e.pos+1 < len(e.tokens) {
		return e.tokens[e.pos+1]
	}
	return e.tokens[len(e.tokens)-1]
}

func (e *extractor) advance() token.Token {
	tok := e.tokens[e.pos]
	if e.pos < len(e.tokens)-1 {
		e.pos++
	}
	return tok
}

func (e *extractor) run() (*Fragments, error) {
	f := &Fragments{}

	selectTok := e.advance()
	if selectTok.Type != token.SELECT {
		return nil, errorf(selectTok.Pos, ErrUnexpectedToken, describe(selectTok), "SELECT")
	}
	if e.cur().Type == token.DISTINCT {
		f.Distinct = true
		selectTok = e.advance()
	}

	fromTok, err := e.scanUntil(func(t token.Token) bool { return t.Type == token.FROM })
	if err != nil {
		return nil, err
	}
	if fromTok.Type != token.FROM {
		return nil, errorf(fromTok.Pos, ErrUnexpectedToken, describe(fromTok), "FROM")
	}
	f.Fields = strings.TrimSpace(e.src[selectTok.End:fromTok.Pos.Offset])
	if f.Fields == "" {
		return nil, errorf(fromTok.Pos, "expected a select list before FROM")
	}
	e.advance()

	parts, err := e.qualifiedName()
	if err != nil {
		return nil, err
	}
	f.Table = parts[len(parts)-1]
	f.Schema = strings.Join(parts[:len(parts)-1], ".")

	seen := map[token.TokenType]bool{}
	for {
		tok := e.cur()
		if seen[tok.Type] {
			return nil, errorf(tok.Pos, "duplicate %s clause", tok.Type)
		}
		seen[tok.Type] = true

		switch tok.Type {
		case token.EOF:
			return f, nil

		case token.SEMICOLON:
			e.advance()
			if next := e.cur(); next.Type != token.EOF {
				return nil, errorf(next.Pos, ErrUnexpectedToken, describe(next), "end of statement")
			}
			return f, nil

		case token.WHERE:
			if seen[token.ORDER] || seen[token.LIMIT] || seen[token.OFFSET] {
				return nil, errorf(tok.Pos, "unexpected WHERE; WHERE must come before ORDER BY, LIMIT and OFFSET")
			}
			e.advance()
			end, err := e.scanUntil(func(t token.Token) bool {
				return (t.Type == token.ORDER && e.peek().Type == token.BY) || isTail(t.Type)
			})
			if err != nil {
				return nil, err
			}
			f.Where = strings.TrimSpace(e.src[tok.End:end.Pos.Offset])
			if f.Where == "" {
				return nil, errorf(end.Pos, "expected a condition after WHERE")
			}

		case token.ORDER:
			if seen[token.LIMIT] || seen[token.OFFSET] {
				return nil, errorf(tok.Pos, "unexpected ORDER BY; ORDER BY must come before LIMIT and OFFSET")
			}
			e.advance()
			byTok := e.advance()
			if byTok.Type != token.BY {
				return nil, errorf(byTok.Pos, ErrUnexpectedToken, describe(byTok), "BY")
			}
			end, err := e.scanUntil(func(t token.Token) bool { return isTail(t.Type) || t.Type == token.WHERE })
			if err != nil {
				return nil, err
			}
			f.OrderBy = strings.TrimSpace(e.src[byTok.End:end.Pos.Offset])
			if f.OrderBy == "" {
				return nil, errorf(end.Pos, "expected columns after ORDER BY")
			}

		case token.LIMIT, token.OFFSET:
			e.advance()
			n, err := e.count(tok)
			if err != nil {
				return nil, err
			}
			if tok.Type == token.LIMIT {
				f.Limit = &n
			} else {
				f.Offset = &n
			}

		default:
			return nil, errorf(tok.Pos, "unexpected %s after table name; only WHERE, ORDER BY, LIMIT and OFFSET are supported", describe(tok))
		}
	}
}

// isTail reports whether t ends a WHERE or ORDER BY clause.
func isTail(t token.TokenType) bool {
	return t == token.LIMIT || t == token.OFFSET || t == token.SEMICOLON || t == token.EOF
}

// scanUntil advances to the first top-level token matching stop (or EOF)
// and returns it without consuming it.
func (e *extractor) scanUntil(stop func(token.Token) bool) (token.Token, error) {
	depth := 0
	for {
		tok := e.cur()
		switch {
		case tok.Type == token.EOF:
			if depth > 0 {
				return tok, errorf(tok.Pos, "unbalanced parentheses")
			}
			return tok, nil
		case tok.Type == token.LPAREN:
			depth++
		case tok.Type == token.RPAREN:
			depth--
			if depth < 0 {
				return tok, errorf(tok.Pos, "unbalanced parentheses")
			}
		case depth == 0 && stop(tok):
			return tok, nil
		case depth == 0 && (tok.Type == token.SELECT || tok.Type == token.UNION):
			return tok, errorf(tok.Pos, "unexpected %s; nested or compound statements are not supported", tok.Type)
		}
		e.advance()
	}
}

// qualifiedName reads ident(.ident)* and returns the unquoted parts.
func (e *extractor) qualifiedName() ([]string, error) {
	var parts []string
	for {
		tok := e.advance()
		if tok.Type != token.IDENT && tok.Type != token.QIDENT {
			return nil, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "table name")
		}
		parts = append(parts, tok.Literal)
		if e.cur().Type != token.DOT {
			return parts, nil
		}
		e.advance()
	}
}

// count reads the non-negative integer following LIMIT or OFFSET.
func (e *extractor) count(kw token.Token) (int, error) {
	tok := e.advance()
	if tok.Type != token.NUMBER {
		return 0, errorf(tok.Pos, ErrInvalidLimit, kw.Type, tok.Literal)
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil || n < 0 {
		return 0, errorf(tok.Pos, ErrInvalidLimit, kw.Type, tok.Literal)
	}
	return n, nil
}

func describe(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER:
		return strconv.Quote(t.Literal)
	case token.STRING:
		return "string " + strconv.Quote(t.Literal)
	case token.QIDENT:
		return "identifier " + strconv.Quote(t.Literal)
	default:
		return t.Type.String()
	}
}
