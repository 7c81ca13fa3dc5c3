// Package odata translates restricted SQL into OData query parameters and
// fetches the result from an OData service.
package odata

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/parser"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/token"
)

// Params are the OData system query options derived from one SELECT.
// Empty strings and nil counts are omitted from the request.
type Params struct {
	Select  string
	Filter  string
	OrderBy string
	Top     *int
	Skip    *int
}

// Request is a translated query: the entity set to read and its options.
type Request struct {
	Table  string
	Schema string // qualification dropped from the FROM reference
	Params Params
}

// Translate converts `SELECT <fields> FROM <table> [WHERE] [ORDER BY]
// [LIMIT] [OFFSET]` into an OData request. Fields of * omit $select.
func Translate(query string) (*Request, error) {
	f, err := parser.Extract(query)
	if err != nil {
		return nil, err
	}
	if f.Distinct {
		return nil, &parser.TranslationLimitationError{Construct: "SELECT DISTINCT"}
	}

	req := &Request{
		Table:  f.Table,
		Schema: f.Schema,
		Params: Params{Top: f.Limit, Skip: f.Offset},
	}
	if f.Fields != "*" {
		req.Params.Select = f.Fields
	}
	if req.Params.Filter, err = TranslateFilter(f.Where); err != nil {
		return nil, err
	}
	if req.Params.OrderBy, err = translateOrderBy(f.OrderBy); err != nil {
		return nil, err
	}
	return req, nil
}

// TranslateFilter converts a SQL WHERE condition into an OData $filter
// expression. Blank input yields "". Already-translated filters are
// accepted and come back unchanged.
func TranslateFilter(where string) (string, error) {
	p, err := parser.ParsePredicate(where)
	if err != nil || p == nil {
		return "", err
	}
	return predicate.ToOData(p)
}

// translateOrderBy splits ORDER BY terms at top-level commas and lowercases
// trailing ASC/DESC. Terms are otherwise passed through.
func translateOrderBy(orderBy string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return "", nil
	}
	tokens, err := parser.Tokenize(orderBy)
	if err != nil {
		return "", err
	}

	var terms []string
	start, depth := 0, 0
	var last token.Token
	flush := func(end int) {
		term := strings.TrimSpace(orderBy[start:end])
		if last.Type == token.ASC || last.Type == token.DESC {
			term = strings.TrimSpace(orderBy[start:last.Pos.Offset]) + " " + strings.ToLower(last.Literal)
		}
		terms = append(terms, term)
	}

	for _, tok := range tokens {
		switch {
		case tok.Type == token.LPAREN:
			depth++
		case tok.Type == token.RPAREN:
			depth--
		case tok.Type == token.EOF, tok.Type == token.COMMA && depth == 0:
			flush(tok.Pos.Offset)
			start = tok.End
			last = token.Token{}
			continue
		}
		last = tok
	}
	return strings.Join(terms, ", "), nil
}

// Values encodes the parameters as a query string map. $format=json is
// always present.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("$format", "json")
	if p.Select != "" {
		v.Set("$select", p.Select)
	}
	if p.Filter != "" {
		v.Set("$filter", p.Filter)
	}
	if p.OrderBy != "" {
		v.Set("$orderby", p.OrderBy)
	}
	if p.Top != nil {
		v.Set("$top", strconv.Itoa(*p.Top))
	}
	if p.Skip != nil {
		v.Set("$skip", strconv.Itoa(*p.Skip))
	}
	return v
}

// URL returns the full request URL below baseURL.
func (r *Request) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(r.Table) + "?" + r.Params.Values().Encode()
}
