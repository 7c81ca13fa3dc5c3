package parser

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/token"
)

// odataOperators are the comparison keywords accepted in operator position,
// so that already-translated filters parse back to the same tree.
var odataOperators = map[string]predicate.Operator{
	"eq": predicate.Eq,
	"ne": predicate.Ne,
	"gt": predicate.Gt,
	"ge": predicate.Ge,
	"lt": predicate.Lt,
	"le": predicate.Le,
}

var sqlOperators = map[token.TokenType]predicate.Operator{
	token.EQ: predicate.Eq,
	token.NE: predicate.Ne,
	token.GT: predicate.Gt,
	token.GE: predicate.Ge,
	token.LT: predicate.Lt,
	token.LE: predicate.Le,
}

var odataFunctions = map[string]predicate.LikeKind{
	"contains":   predicate.LikeContains,
	"startswith": predicate.LikeStartsWith,
	"endswith":   predicate.LikeEndsWith,
}

// ParsePredicate parses a WHERE condition into a predicate tree.
//
// The grammar is OR over AND over primaries, where a primary is a
// parenthesized group or one of:
//
//	col <op> value            (op: = <> != < > <= >= or eq ne lt gt le ge)
//	col IS [NOT] NULL
//	col [NOT] IN (value, ...)
//	col LIKE 'pattern'
//	contains|startswith|endswith(col, 'text')
//	number <op> number
//
// Bare words in value position are string literals unless they are a plain
// number or null/true/false. Constructs outside this grammar return a
// *TranslationLimitationError; malformed input returns a *ParseError.
// Blank input yields a nil predicate.
func ParsePredicate(input string) (predicate.Predicate, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &predicateParser{tokens: tokens}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if tok := p.cur(); tok.Type == token.SEMICOLON {
		p.advance()
	}
	if tok := p.cur(); tok.Type != token.EOF {
		if isArithmetic(tok.Type) {
			return nil, predicate.Limitation(tok.Pos, "arithmetic expression")
		}
		return nil, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "AND, OR or end of condition")
	}
	return pred, nil
}

type predicateParser struct {
	tokens []token.Token
	pos    int
}

func (p *predicateParser) cur() token.Token {
	return p.tokens[p.pos]
}

func (p *predicateParser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *predicateParser) advance() token.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *predicateParser) expect(t token.TokenType, what string) (token.Token, error) {
	tok := p.advance()
	if tok.Type != t {
		return tok, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), what)
	}
	return tok, nil
}

func (p *predicateParser) parseOr() (predicate.Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == token.OR {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &predicate.Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *predicateParser) parseAnd() (predicate.Predicate, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == token.AND {
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &predicate.And{Left: left, Right: right}
	}
	return left, nil
}

func (p *predicateParser) parsePrimary() (predicate.Predicate, error) {
	tok := p.cur()

	switch tok.Type {
	case token.LPAREN:
		if p.peek().Type == token.SELECT {
			return nil, predicate.Limitation(tok.Pos, "subquery")
		}
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return &predicate.Group{Inner: inner}, nil

	case token.NOT:
		return nil, predicate.Limitation(tok.Pos, "NOT operator")

	case token.EXISTS:
		return nil, predicate.Limitation(tok.Pos, "EXISTS")

	case token.IDENT:
		if p.peek().Type == token.LPAREN {
			return p.parseFunction()
		}
		return p.parseColumnPredicate()

	case token.QIDENT:
		return p.parseColumnPredicate()

	case token.NUMBER, token.MINUS, token.STRING, token.TRUE, token.FALSE, token.NULL:
		return p.parseConstant()

	default:
		return nil, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "a condition")
	}
}

// parseColumnPredicate parses everything that starts with a column reference.
func (p *predicateParser) parseColumnPredicate() (predicate.Predicate, error) {
	col, err := p.parseColumn()
	if err != nil {
		return nil, err
	}

	tok := p.cur()
	switch {
	case isArithmetic(tok.Type):
		return nil, predicate.Limitation(tok.Pos, "arithmetic expression")

	case tok.Type == token.IS:
		p.advance()
		negated := false
		if p.cur().Type == token.NOT {
			p.advance()
			negated = true
		}
		if _, err := p.expect(token.NULL, "NULL"); err != nil {
			return nil, err
		}
		return &predicate.NullCheck{Column: col, IsNull: !negated}, nil

	case tok.Type == token.NOT:
		p.advance()
		next := p.cur()
		switch next.Type {
		case token.IN:
			p.advance()
			return p.parseIn(col, true)
		case token.LIKE, token.ILIKE:
			return nil, predicate.Limitation(next.Pos, "NOT %s", next.Type)
		case token.BETWEEN:
			return nil, predicate.Limitation(next.Pos, "NOT BETWEEN")
		default:
			return nil, errorf(next.Pos, ErrUnexpectedToken, describe(next), "IN")
		}

	case tok.Type == token.IN:
		p.advance()
		return p.parseIn(col, false)

	case tok.Type == token.LIKE:
		p.advance()
		return p.parseLike(col)

	case tok.Type == token.ILIKE:
		return nil, predicate.Limitation(tok.Pos, "ILIKE")

	case tok.Type == token.BETWEEN:
		return nil, predicate.Limitation(tok.Pos, "BETWEEN")
	}

	op, ok := p.operator()
	if !ok {
		return nil, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "a comparison operator")
	}

	valTok := p.cur()
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	if val.Kind == predicate.KindNull {
		switch op {
		case predicate.Eq:
			return &predicate.NullCheck{Column: col, IsNull: true}, nil
		case predicate.Ne:
			return &predicate.NullCheck{Column: col, IsNull: false}, nil
		default:
			return nil, predicate.Limitation(valTok.Pos, "%s comparison with null", op)
		}
	}
	return &predicate.Comparison{Column: col, Op: op, Value: val}, nil
}

// parseColumn reads ident(.ident)*.
func (p *predicateParser) parseColumn() (predicate.Column, error) {
	var path []string
	for {
		tok := p.advance()
		if tok.Type != token.IDENT && tok.Type != token.QIDENT {
			return predicate.Column{}, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "column name")
		}
		path = append(path, tok.Literal)
		if p.cur().Type != token.DOT {
			return predicate.Column{Path: path}, nil
		}
		p.advance()
	}
}

// operator consumes a SQL comparison symbol or an OData comparison keyword.
func (p *predicateParser) operator() (predicate.Operator, bool) {
	tok := p.cur()
	if token.IsComparison(tok.Type) {
		p.advance()
		return sqlOperators[tok.Type], true
	}
	if tok.Type == token.IDENT {
		if op, ok := odataOperators[strings.ToLower(tok.Literal)]; ok {
			p.advance()
			return op, true
		}
	}
	return 0, false
}

// parseValue reads a literal in value position.
func (p *predicateParser) parseValue() (predicate.Literal, error) {
	tok := p.cur()

	var lit predicate.Literal
	switch tok.Type {
	case token.STRING:
		p.advance()
		lit = predicate.String(tok.Literal)
	case token.NUMBER:
		p.advance()
		lit = predicate.Classify(tok.Literal)
	case token.MINUS:
		p.advance()
		num, err := p.expect(token.NUMBER, "number after '-'")
		if err != nil {
			return lit, err
		}
		lit = predicate.Classify("-" + num.Literal)
	case token.TRUE:
		p.advance()
		lit = predicate.Bool(true)
	case token.FALSE:
		p.advance()
		lit = predicate.Bool(false)
	case token.NULL:
		p.advance()
		lit = predicate.Null()
	case token.IDENT:
		switch p.peek().Type {
		case token.DOT:
			return lit, predicate.Limitation(tok.Pos, "comparison between columns")
		case token.LPAREN:
			return lit, predicate.Limitation(tok.Pos, "function call %s()", tok.Literal)
		}
		p.advance()
		lit = predicate.Classify(tok.Literal)
	case token.QIDENT:
		return lit, predicate.Limitation(tok.Pos, "comparison between columns")
	case token.LPAREN:
		if p.peek().Type == token.SELECT {
			return lit, predicate.Limitation(tok.Pos, "subquery")
		}
		return lit, predicate.Limitation(tok.Pos, "parenthesized value expression")
	default:
		return lit, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "a value")
	}

	if next := p.cur(); isArithmetic(next.Type) {
		return lit, predicate.Limitation(next.Pos, "arithmetic expression")
	}
	return lit, nil
}

// parseIn reads the parenthesized value list after IN.
func (p *predicateParser) parseIn(col predicate.Column, negated bool) (predicate.Predicate, error) {
	open, err := p.expect(token.LPAREN, "'(' after IN")
	if err != nil {
		return nil, err
	}
	if p.cur().Type == token.SELECT {
		return nil, predicate.Limitation(open.Pos, "subquery")
	}

	set := &predicate.InSet{Column: col, Negated: negated}
	if p.cur().Type == token.RPAREN {
		p.advance()
		return set, nil
	}

	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		set.Values = append(set.Values, v)

		tok := p.advance()
		switch tok.Type {
		case token.COMMA:
			continue
		case token.RPAREN:
			return set, nil
		default:
			return nil, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "',' or ')'")
		}
	}
}

// parseLike reads the pattern after LIKE.
func (p *predicateParser) parseLike(col predicate.Column) (predicate.Predicate, error) {
	tok, err := p.expect(token.STRING, "a string pattern after LIKE")
	if err != nil {
		return nil, err
	}
	if esc := p.cur(); esc.Type == token.ESCAPE {
		return nil, predicate.Limitation(esc.Pos, "LIKE ... ESCAPE")
	}

	like, err := predicate.NewLikePattern(col, tok.Literal)
	if err != nil {
		return nil, predicate.Limitation(tok.Pos, "LIKE pattern %q (only leading or trailing %% wildcards translate)", tok.Literal)
	}
	return like, nil
}

// parseFunction reads contains/startswith/endswith(col, 'text').
func (p *predicateParser) parseFunction() (predicate.Predicate, error) {
	name := p.advance()
	kind, ok := odataFunctions[strings.ToLower(name.Literal)]
	if !ok {
		return nil, predicate.Limitation(name.Pos, "function call %s()", name.Literal)
	}
	p.advance() // (

	col, err := p.parseColumn()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COMMA, "','"); err != nil {
		return nil, err
	}
	arg, err := p.expect(token.STRING, "a string argument")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}

	if strings.ContainsAny(arg.Literal, "%_") {
		return nil, predicate.Limitation(arg.Pos, "%s() argument %q containing LIKE wildcards", strings.ToLower(name.Literal), arg.Literal)
	}
	return &predicate.LikePattern{Column: col, Kind: kind, Value: arg.Literal}, nil
}

// parseConstant handles a comparison whose left side is a literal. Only
// number-to-number comparisons are supported; they fold to a Constant.
func (p *predicateParser) parseConstant() (predicate.Predicate, error) {
	start := p.cur()
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	op, ok := p.operator()
	if !ok {
		tok := p.cur()
		return nil, errorf(tok.Pos, ErrUnexpectedToken, describe(tok), "a comparison operator")
	}

	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	if left.Kind != predicate.KindNumber || right.Kind != predicate.KindNumber {
		return nil, predicate.Limitation(start.Pos, "comparison without a column")
	}

	cmp := decimal.RequireFromString(left.Text).Cmp(decimal.RequireFromString(right.Text))
	var v bool
	switch op {
	case predicate.Eq:
		v = cmp == 0
	case predicate.Ne:
		v = cmp != 0
	case predicate.Gt:
		v = cmp > 0
	case predicate.Ge:
		v = cmp >= 0
	case predicate.Lt:
		v = cmp < 0
	case predicate.Le:
		v = cmp <= 0
	}
	return &predicate.Constant{Value: v}, nil
}

func isArithmetic(t token.TokenType) bool {
	switch t {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.DPIPE:
		return true
	}
	return false
}
