// Package query turns the flat key/value parameters of a listing request into
// a structured filter, sort spec and pagination window the postgres repo can
// execute. Everything here is pure computation; translation into SQL lives
// with the repository.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Condition is one field constraint; Values is set instead of Value for OpIn.
type Condition struct {
	Field  string
	Op     Op
	Value  string
	Values []string
}

type SortKey struct {
	Field string
	Desc  bool
}

type Filter struct {
	// AND'd field constraints
	Conditions []Condition
	// case-insensitive substring matched against title OR content,
	// AND'd with Conditions as its own group
	Search string
}

type ListParams struct {
	Filter Filter
	Select []string
	Sort   []SortKey
	Page   int
	Limit  int
}

// parameters that never become filter conditions
var reservedParams = map[string]bool{
	"select": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
	"search": true,
}

// Explicit allow-list of filterable fields and the operators each accepts.
// Unknown keys are rejected instead of passed through to the store.
var filterableFields = map[string]map[Op]bool{
	"category": {OpEq: true, OpIn: true},
	"author":   {OpEq: true, OpIn: true},
	"slug":     {OpEq: true},
	"tags":     {OpEq: true, OpIn: true},
	"likes":    {OpEq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true},
}

// fields that take numeric comparison values
var numericFields = map[string]bool{
	"likes": true,
}

var sortableFields = map[string]bool{
	"createdAt": true,
	"title":     true,
	"category":  true,
	"likes":     true,
}

// ParseListParams partitions the raw query parameters into reserved directives
// and field constraints. Constraint keys are either a bare field name
// (equality) or "field[op]" with op one of gt, gte, lt, lte, in.
func ParseListParams(values url.Values) (ListParams, error) {
	p := ListParams{
		Page:  parsePositiveInt(values.Get("page"), 1),
		Limit: parsePositiveInt(values.Get("limit"), 10),
	}

	if s := strings.TrimSpace(values.Get("search")); s != "" {
		p.Filter.Search = s
	}

	if sel := values.Get("select"); sel != "" {
		p.Select = splitFields(sel)
	}

	sortSpec, err := parseSort(values.Get("sort"))

	if err != nil {
		return ListParams{}, err
	}

	p.Sort = sortSpec

	// deterministic condition order regardless of map iteration
	keys := make([]string, 0, len(values))

	for key := range values {
		if !reservedParams[key] {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	for _, key := range keys {
		cond, err := parseCondition(key, values.Get(key))

		if err != nil {
			return ListParams{}, err
		}

		p.Filter.Conditions = append(p.Filter.Conditions, cond)
	}

	return p, nil
}

func parseCondition(key, value string) (Condition, error) {
	field, op, err := splitFilterKey(key)

	if err != nil {
		return Condition{}, err
	}

	allowed, ok := filterableFields[field]

	if !ok {
		return Condition{}, fmt.Errorf("cannot filter on field %q", field)
	}

	if !allowed[op] {
		return Condition{}, fmt.Errorf("operator %q is not allowed on field %q", op, field)
	}

	cond := Condition{Field: field, Op: op}

	if op == OpIn {
		cond.Values = splitFields(value)

		if len(cond.Values) == 0 {
			return Condition{}, fmt.Errorf("empty value list for field %q", field)
		}

		return cond, nil
	}

	value = strings.TrimSpace(value)

	if value == "" {
		return Condition{}, fmt.Errorf("empty value for field %q", field)
	}

	if numericFields[field] {
		if _, err := strconv.Atoi(value); err != nil {
			return Condition{}, fmt.Errorf("field %q requires a numeric value", field)
		}
	}

	cond.Value = value

	return cond, nil
}

// splitFilterKey recognizes "field" and "field[op]" keys.
func splitFilterKey(key string) (string, Op, error) {
	open := strings.Index(key, "[")

	if open == -1 {
		return key, OpEq, nil
	}

	if !strings.HasSuffix(key, "]") {
		return "", "", fmt.Errorf("malformed filter key %q", key)
	}

	field := key[:open]
	op := Op(key[open+1 : len(key)-1])

	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpIn:
		return field, op, nil
	default:
		return "", "", fmt.Errorf("unknown operator %q in filter key %q", op, key)
	}
}

func parseSort(raw string) ([]SortKey, error) {
	if strings.TrimSpace(raw) == "" {
		// newest first by default
		return []SortKey{{Field: "createdAt", Desc: true}}, nil
	}

	fields := splitFields(raw)

	out := make([]SortKey, 0, len(fields))

	for _, f := range fields {
		key := SortKey{Field: f}

		if strings.HasPrefix(f, "-") {
			key.Field = f[1:]
			key.Desc = true
		}

		if !sortableFields[key.Field] {
			return nil, fmt.Errorf("cannot sort on field %q", key.Field)
		}

		out = append(out, key)
	}

	return out, nil
}

func splitFields(raw string) []string {
	parts := strings.Split(raw, ",")

	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// parsePositiveInt falls back for missing, non-numeric and non-positive
// input; a negative offset can never be produced from the result.
func parsePositiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)

	if err != nil || n < 1 {
		return fallback
	}

	return n
}
