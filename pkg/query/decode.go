package query

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Loose input decoding. These functions turn YAML/JSON-shaped values
// (maps, slices, strings, numbers) into the canonical Spec types. Shapes
// that match no accepted form fail with *ShapeError.

type looseSpec struct {
	Schema     string `mapstructure:"schema"`
	Table      string `mapstructure:"table"`
	Alias      string `mapstructure:"alias"`
	Columns    any    `mapstructure:"columns"`
	Distinct   bool   `mapstructure:"distinct"`
	Joins      any    `mapstructure:"joins"`
	Where      string `mapstructure:"where"`
	GroupBy    any    `mapstructure:"group_by"`
	Having     string `mapstructure:"having"`
	Aggregates any    `mapstructure:"aggregates"`
	OrderBy    any    `mapstructure:"order_by"`
	Limit      any    `mapstructure:"limit"`
	Offset     any    `mapstructure:"offset"`
	CTEs       any    `mapstructure:"ctes"`
	Args       []any  `mapstructure:"args"`
}

type looseJoin struct {
	Type   string `mapstructure:"type"`
	Schema string `mapstructure:"schema"`
	Table  string `mapstructure:"table"`
	Alias  string `mapstructure:"alias"`
	On     string `mapstructure:"on"`
}

type looseAggregate struct {
	Func string `mapstructure:"func"`
	Expr any    `mapstructure:"expr"`
	As   string `mapstructure:"as"`
}

type looseCTE struct {
	Name  string `mapstructure:"name"`
	Query string `mapstructure:"query"`
}

// Entry is one key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value any
}

// Mapping is a mapping that keeps document order. The ctes and keyed
// aggregates forms need it: a CTE may only reference the ones before it,
// and aggregate columns appear in the order they were written.
type Mapping []Entry

// orderedKeys are the top-level spec keys whose mapping form is decoded
// as a Mapping.
var orderedKeys = map[string]bool{"ctes": true, "aggregates": true}

// SpecFromYAML decodes a YAML (or JSON) spec document. Mappings under ctes
// and aggregates keep their document order.
func SpecFromYAML(content []byte) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Tag == "!!null" {
		return nil, ErrEmptySpec
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ShapeError{Field: "spec", Value: root.Value, Want: "a mapping"}
	}

	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		if !orderedKeys[key] || val.Kind != yaml.MappingNode {
			continue
		}
		m, err := mappingFrom(val)
		if err != nil {
			return nil, err
		}
		raw[key] = m
	}
	return SpecFrom(raw)
}

func mappingFrom(n *yaml.Node) (Mapping, error) {
	out := make(Mapping, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: n.Content[i].Value, Value: v})
	}
	return out, nil
}

// orderedFrom accepts a plain Go map only when it has a single key; with
// more, its iteration order is undefined and the caller must use a Mapping
// or a list.
func orderedFrom(field string, m map[string]any) (Mapping, error) {
	if len(m) > 1 {
		return nil, &ShapeError{Field: field, Value: m, Want: "a query.Mapping or a list (a map has no order)"}
	}
	out := make(Mapping, 0, len(m))
	for k, v := range m {
		out = append(out, Entry{Key: k, Value: v})
	}
	return out, nil
}

func decodeStrict(field string, input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
		TagName:     "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return &ShapeError{Field: field, Value: input, Cause: err}
	}
	return nil
}

// SpecFrom decodes a loosely-typed spec document. Keys: schema, table,
// alias, columns, distinct, joins, where, group_by, having, aggregates,
// order_by, limit, offset, ctes, args. Unknown keys are rejected.
func SpecFrom(raw map[string]any) (*Spec, error) {
	var ls looseSpec
	if err := decodeStrict("spec", raw, &ls); err != nil {
		return nil, err
	}

	spec := &Spec{
		Schema:   ls.Schema,
		Table:    ls.Table,
		Alias:    ls.Alias,
		Distinct: ls.Distinct,
		Where:    ls.Where,
		Having:   ls.Having,
		Args:     ls.Args,
	}

	var err error
	if spec.Columns, err = ColumnsFrom(ls.Columns); err != nil {
		return nil, err
	}
	if spec.Joins, err = JoinsFrom(ls.Joins); err != nil {
		return nil, err
	}
	if spec.GroupBy, err = termsFrom("group_by", ls.GroupBy); err != nil {
		return nil, err
	}
	if spec.Aggregates, err = AggregatesFrom(ls.Aggregates); err != nil {
		return nil, err
	}
	if spec.OrderBy, err = termsFrom("order_by", ls.OrderBy); err != nil {
		return nil, err
	}
	if spec.Limit, err = countFrom("limit", ls.Limit); err != nil {
		return nil, err
	}
	if spec.Offset, err = countFrom("offset", ls.Offset); err != nil {
		return nil, err
	}
	if spec.CTEs, err = CTEsFrom(ls.CTEs); err != nil {
		return nil, err
	}
	return spec, nil
}

// ColumnsFrom decodes a select list. Accepted shapes:
//
//	nil or "*"              wildcard
//	"a, b + 1"              one raw expression
//	["id", "t.x", [s, t, c], "*"]  per item: bare name -> Ident,
//	                        list of names -> qualified Ident, "*" -> Star,
//	                        anything else -> Raw
func ColumnsFrom(v any) ([]Expr, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(c) == "*" {
			return []Expr{Star{}}, nil
		}
		return []Expr{Raw(c)}, nil
	case []string:
		out := make([]Expr, len(c))
		for i, s := range c {
			out[i] = LooseExpr(s)
		}
		return out, nil
	case []any:
		out := make([]Expr, len(c))
		for i, item := range c {
			e, err := exprFrom(fmt.Sprintf("columns[%d]", i), item)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	default:
		return nil, &ShapeError{Field: "columns", Value: v, Want: `"*", a raw expression string, or a list of column references`}
	}
}

// exprFrom applies the loose rule to one item.
func exprFrom(field string, v any) (Expr, error) {
	switch e := v.(type) {
	case string:
		return LooseExpr(e), nil
	case []string:
		return Col(e...), nil
	case []any:
		parts := make([]string, len(e))
		for i, p := range e {
			s, ok := p.(string)
			if !ok {
				return nil, &ShapeError{Field: field, Value: v, Want: "a list of identifier strings"}
			}
			parts[i] = s
		}
		return Col(parts...), nil
	case Expr:
		return e, nil
	default:
		return nil, &ShapeError{Field: field, Value: v, Want: "a string or a list of identifier strings"}
	}
}

// termsFrom decodes GROUP BY and ORDER BY lists. Strings are raw SQL
// ("amount DESC", "orders.customer_id"); lists of names are qualified
// identifiers.
func termsFrom(field string, v any) ([]Expr, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []Expr{Raw(t)}, nil
	case []string:
		out := make([]Expr, len(t))
		for i, s := range t {
			out[i] = Raw(s)
		}
		return out, nil
	case []any:
		out := make([]Expr, len(t))
		for i, item := range t {
			itemField := fmt.Sprintf("%s[%d]", field, i)
			if s, ok := item.(string); ok {
				out[i] = Raw(s)
				continue
			}
			e, err := exprFrom(itemField, item)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	default:
		return nil, &ShapeError{Field: field, Value: v, Want: "a string or a list"}
	}
}

// JoinsFrom decodes a list of {type, schema, table, alias, on} records.
func JoinsFrom(v any) ([]Join, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &ShapeError{Field: "joins", Value: v, Want: "a list of join records"}
	}

	out := make([]Join, len(items))
	for i, item := range items {
		field := fmt.Sprintf("joins[%d]", i)
		if _, ok := item.(map[string]any); !ok {
			return nil, &ShapeError{Field: field, Value: item, Want: "a {type, schema, table, alias, on} record"}
		}
		var lj looseJoin
		if err := decodeStrict(field, item, &lj); err != nil {
			return nil, err
		}
		kind, ok := ParseJoinKind(lj.Type)
		if !ok {
			return nil, invalid(field, ErrInvalidJoin, "unknown join type %q", lj.Type)
		}
		out[i] = Join{Kind: kind, Schema: lj.Schema, Table: lj.Table, Alias: lj.Alias, On: lj.On}
	}
	return out, nil
}

// rawAggregate matches FUNC(expr) [AS alias].
var rawAggregate = regexp.MustCompile(`(?is)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)(?:\s+AS\s+(?:"([^"]+)"|([A-Za-z_][A-Za-z0-9_]*)))?\s*$`)

const aggregateShapes = `alias: (func, expr), (func, expr[, alias]), {func, expr, as} or "FUNC(expr) [AS alias]"`

// AggregatesFrom decodes aggregates. Accepted shapes, freely mixed in a list:
//
//	{alias: [func, expr]}          keyed mapping (document order)
//	{alias: "FUNC(expr)"}          keyed raw string
//	[func, expr] / [func, expr, alias]
//	{func: f, expr: e, as: alias}
//	"FUNC(expr) [AS alias]"
//
// Expressions follow the loose rule: "*" is the wildcard, a bare name is
// an identifier, a list of names is a qualified identifier, anything else
// is raw. The expression inside a raw aggregate string stays raw.
func AggregatesFrom(v any) ([]Aggregate, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil

	case map[string]any:
		m, err := orderedFrom("aggregates", a)
		if err != nil {
			return nil, err
		}
		return keyedAggregates(m)

	case Mapping:
		return keyedAggregates(a)

	case []any:
		out := make([]Aggregate, len(a))
		for i, item := range a {
			agg, err := aggregateItem(fmt.Sprintf("aggregates[%d]", i), item)
			if err != nil {
				return nil, err
			}
			out[i] = agg
		}
		return out, nil

	case string:
		agg, err := parseRawAggregate("aggregates", a)
		if err != nil {
			return nil, err
		}
		return []Aggregate{agg}, nil

	default:
		return nil, &ShapeError{Field: "aggregates", Value: v, Want: aggregateShapes}
	}
}

func keyedAggregates(m Mapping) ([]Aggregate, error) {
	out := make([]Aggregate, 0, len(m))
	for _, e := range m {
		field := "aggregates." + e.Key
		var (
			agg Aggregate
			err error
		)
		switch spec := e.Value.(type) {
		case string:
			agg, err = parseRawAggregate(field, spec)
		case []any:
			if len(spec) != 2 {
				return nil, &ShapeError{Field: field, Value: spec, Want: "a (func, expr) pair"}
			}
			agg, err = aggregateTuple(field, spec)
		default:
			return nil, &ShapeError{Field: field, Value: spec, Want: aggregateShapes}
		}
		if err != nil {
			return nil, err
		}
		agg.Alias = e.Key
		out = append(out, agg)
	}
	return out, nil
}

func aggregateItem(field string, item any) (Aggregate, error) {
	switch spec := item.(type) {
	case string:
		return parseRawAggregate(field, spec)
	case []any:
		if len(spec) != 2 && len(spec) != 3 {
			return Aggregate{}, &ShapeError{Field: field, Value: spec, Want: "a (func, expr[, alias]) tuple"}
		}
		return aggregateTuple(field, spec)
	case map[string]any:
		var la looseAggregate
		if err := decodeStrict(field, spec, &la); err != nil {
			return Aggregate{}, err
		}
		if la.Func == "" || la.Expr == nil {
			return Aggregate{}, &ShapeError{Field: field, Value: spec, Want: "a record with func and expr"}
		}
		expr, err := exprFrom(field+".expr", la.Expr)
		if err != nil {
			return Aggregate{}, err
		}
		return Aggregate{Func: la.Func, Expr: expr, Alias: la.As}, nil
	case Aggregate:
		return spec, nil
	default:
		return Aggregate{}, &ShapeError{Field: field, Value: item, Want: aggregateShapes}
	}
}

func aggregateTuple(field string, t []any) (Aggregate, error) {
	fn, ok := t[0].(string)
	if !ok {
		return Aggregate{}, &ShapeError{Field: field, Value: t, Want: "a function name as the first element"}
	}
	expr, err := exprFrom(field, t[1])
	if err != nil {
		return Aggregate{}, err
	}
	agg := Aggregate{Func: fn, Expr: expr}
	if len(t) == 3 {
		alias, ok := t[2].(string)
		if !ok {
			return Aggregate{}, &ShapeError{Field: field, Value: t, Want: "an alias string as the third element"}
		}
		agg.Alias = alias
	}
	return agg, nil
}

func parseRawAggregate(field, s string) (Aggregate, error) {
	m := rawAggregate.FindStringSubmatch(s)
	if m == nil {
		return Aggregate{}, &ShapeError{Field: field, Value: s, Want: `"FUNC(expr) [AS alias]"`}
	}

	var expr Expr = Raw(strings.TrimSpace(m[2]))
	if expr == Raw("*") {
		expr = Star{}
	}
	alias := m[3]
	if alias == "" {
		// An unquoted alias folds to lower case, as the database would.
		alias = strings.ToLower(m[4])
	}
	return Aggregate{Func: m[1], Expr: expr, Alias: alias}, nil
}

// CTEsFrom decodes common table expressions from a {name: query} Mapping
// (document order), a list of {name, query} records, or a list of
// [name, query] pairs. A plain map is accepted only with a single entry.
func CTEsFrom(v any) ([]CTE, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil

	case map[string]any:
		m, err := orderedFrom("ctes", c)
		if err != nil {
			return nil, err
		}
		return keyedCTEs(m)

	case Mapping:
		return keyedCTEs(c)

	case []any:
		out := make([]CTE, len(c))
		for i, item := range c {
			field := fmt.Sprintf("ctes[%d]", i)
			switch e := item.(type) {
			case map[string]any:
				var lc looseCTE
				if err := decodeStrict(field, e, &lc); err != nil {
					return nil, err
				}
				out[i] = CTE{Name: lc.Name, Query: lc.Query}
			case []any:
				if len(e) != 2 {
					return nil, &ShapeError{Field: field, Value: item, Want: "a (name, query) pair"}
				}
				name, okName := e[0].(string)
				q, okQuery := e[1].(string)
				if !okName || !okQuery {
					return nil, &ShapeError{Field: field, Value: item, Want: "a (name, query) pair"}
				}
				out[i] = CTE{Name: name, Query: q}
			default:
				return nil, &ShapeError{Field: field, Value: item, Want: "a {name, query} record or a (name, query) pair"}
			}
		}
		return out, nil

	default:
		return nil, &ShapeError{Field: "ctes", Value: v, Want: "a {name: query} mapping or a list"}
	}
}

// countFrom decodes LIMIT and OFFSET. Integral numbers are accepted in any
// numeric type; strings, fractions and negatives are not.
func countFrom(field string, v any) (*int, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		n = int64(x)
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt32 {
			return nil, invalid(field, ErrInvalidLimit, "got %d", x)
		}
		n = int64(x)
	case float32:
		if float64(x) != math.Trunc(float64(x)) {
			return nil, invalid(field, ErrInvalidLimit, "got %v", x)
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil, invalid(field, ErrInvalidLimit, "got %v", x)
		}
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil, invalid(field, ErrInvalidLimit, "got %q", x.String())
		}
		n = i
	default:
		return nil, invalid(field, ErrInvalidLimit, "got %T %v", v, v)
	}

	if n < 0 || n > math.MaxInt32 {
		return nil, invalid(field, ErrInvalidLimit, "got %d", n)
	}
	out := int(n)
	return &out, nil
}

func keyedCTEs(m Mapping) ([]CTE, error) {
	out := make([]CTE, len(m))
	for i, e := range m {
		q, ok := e.Value.(string)
		if !ok {
			return nil, &ShapeError{Field: "ctes." + e.Key, Value: e.Value, Want: "a query string"}
		}
		out[i] = CTE{Name: e.Key, Query: q}
	}
	return out, nil
}
