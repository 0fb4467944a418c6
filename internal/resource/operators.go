package resource

import (
	"strconv"
	"strings"
	"time"
)

// Operator names usable in Descriptor.Filters.
const (
	OpEqual      = "equal"
	OpIn         = "in"
	OpContains   = "contains"
	OpStartsWith = "starts_with"
	OpBool       = "bool"
	OpDateEqual  = "date_equal"
	OpDateLTE    = "date_lte"
	OpDateGTE    = "date_gte"
)

// Operator appends a predicate for col/raw to the query. Operators are
// pure with respect to the query value, idempotent under re-application
// with the same value, and silently leave the query untouched when the
// raw value does not parse.
type Operator func(q *Query, col, raw string)

var operators = map[string]Operator{
	OpEqual: func(q *Query, col, raw string) {
		q.Where(col+" = ?", raw)
	},
	OpIn: func(q *Query, col, raw string) {
		parts := splitCSV(raw)
		if len(parts) == 0 {
			return
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(parts)), ",")
		args := make([]any, len(parts))
		for i, p := range parts {
			args[i] = p
		}
		q.Where(col+" IN ("+placeholders+")", args...)
	},
	OpContains: func(q *Query, col, raw string) {
		q.Where(col+" LIKE ?", "%"+raw+"%")
	},
	OpStartsWith: func(q *Query, col, raw string) {
		q.Where(col+" LIKE ?", raw+"%")
	},
	OpBool: func(q *Query, col, raw string) {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		q.Where(col+" = ?", b)
	},
	OpDateEqual: dateOperator("="),
	OpDateLTE:   dateOperator("<="),
	OpDateGTE:   dateOperator(">="),
}

// LookupOperator returns the named operator from the registry.
func LookupOperator(name string) (Operator, bool) {
	op, ok := operators[name]
	return op, ok
}

func dateOperator(cmp string) Operator {
	return func(q *Query, col, raw string) {
		t, ok := parseTime(raw)
		if !ok {
			return
		}
		q.Where(col+" "+cmp+" ?", t)
	}
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func splitCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
