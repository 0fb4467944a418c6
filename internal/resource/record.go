// Package resource implements a declarative REST resource layer: a filter
// DSL driven by an operator registry, pagination, field projection,
// permission gating, and transactional create/update/patch/delete
// pipelines over database/sql.
package resource

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a row travelling through the resource layer. The layer is
// generic over entity shape; concrete column knowledge lives in the
// Descriptor.
type Record map[string]any

// Int64 coerces a field to int64. JSON numbers arrive as float64 and
// query scans may yield strings, so all of those are accepted.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	}
	return 0
}

// Float64 coerces a field to float64, accepting the same shapes Int64
// does.
func (r Record) Float64(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case json.Number:
		n, _ := v.Float64()
		return n
	case string:
		n, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n
	}
	return 0
}

// String coerces a field to its string form, empty when absent or null.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case json.Number:
		return v.String()
	}
	return ""
}

// Has reports key presence, including keys explicitly set to null.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
