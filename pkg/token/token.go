// Package token defines the token types shared by the fragment extractor and
// the predicate parser.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	QIDENT // "quoted identifier"
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;

	// Keywords (alphabetical)
	AND
	AS
	ASC
	BETWEEN
	BY
	DESC
	DISTINCT
	ESCAPE
	EXISTS
	FALSE
	FROM
	GROUP
	HAVING
	ILIKE
	IN
	IS
	JOIN
	LIKE
	LIMIT
	NOT
	NULL
	OFFSET
	OR
	ORDER
	SELECT
	TRUE
	UNION
	WHERE
	WITH
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	QIDENT: "QIDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	SEMICOLON: ";",

	AND:      "AND",
	AS:       "AS",
	ASC:      "ASC",
	BETWEEN:  "BETWEEN",
	BY:       "BY",
	DESC:     "DESC",
	DISTINCT: "DISTINCT",
	ESCAPE:   "ESCAPE",
	EXISTS:   "EXISTS",
	FALSE:    "FALSE",
	FROM:     "FROM",
	GROUP:    "GROUP",
	HAVING:   "HAVING",
	ILIKE:    "ILIKE",
	IN:       "IN",
	IS:       "IS",
	JOIN:     "JOIN",
	LIKE:     "LIKE",
	LIMIT:    "LIMIT",
	NOT:      "NOT",
	NULL:     "NULL",
	OFFSET:   "OFFSET",
	OR:       "OR",
	ORDER:    "ORDER",
	SELECT:   "SELECT",
	TRUE:     "TRUE",
	UNION:    "UNION",
	WHERE:    "WHERE",
	WITH:     "WITH",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":      AND,
	"as":       AS,
	"asc":      ASC,
	"between":  BETWEEN,
	"by":       BY,
	"desc":     DESC,
	"distinct": DISTINCT,
	"escape":   ESCAPE,
	"exists":   EXISTS,
	"false":    FALSE,
	"from":     FROM,
	"group":    GROUP,
	"having":   HAVING,
	"ilike":    ILIKE,
	"in":       IN,
	"is":       IS,
	"join":     JOIN,
	"like":     LIKE,
	"limit":    LIMIT,
	"not":      NOT,
	"null":     NULL,
	"offset":   OFFSET,
	"or":       OR,
	"order":    ORDER,
	"select":   SELECT,
	"true":     TRUE,
	"union":    UNION,
	"where":    WHERE,
	"with":     WITH,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsComparison returns true for =, !=, <, >, <= and >=.
func IsComparison(t TokenType) bool {
	return t >= EQ && t <= GE
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string   // unescaped content for STRING and QIDENT
	Pos     Position // start of the token
	End     int      // byte offset just past the token
}
