package resource

import (
	"net/url"
	"strconv"
	"strings"
)

// Reserved query parameters. Everything else shaped like
// __<field>__<operator> is a filter token.
const (
	paramPage       = "__page"
	paramLimit      = "__limit"
	paramOrderBy    = "__order_by"
	paramOnly       = "__only"
	paramExclude    = "__exclude"
	paramInclude    = "__include"
	paramDistinctBy = "__distinct_by"
	paramExport     = "__export__"
)

// Params is the request-scoped view of the query string, read exactly
// once at entry and frozen for the rest of the operation.
type Params struct {
	Page  int
	Limit int

	Only    []string
	Exclude []string
	Include []string

	OrderBy    []string
	DistinctBy string
	Export     bool

	// Filters keeps the raw query values for operator tokens.
	Filters url.Values
}

// ParseParams builds the frozen Params for one request. A requested limit
// above the descriptor's max falls back to the default limit rather than
// being rejected; page defaults to 1.
func ParseParams(d Descriptor, values url.Values) Params {
	p := Params{
		Page:       1,
		Limit:      d.defaultLimit(),
		Only:       multiValue(values, paramOnly),
		Exclude:    multiValue(values, paramExclude),
		Include:    multiValue(values, paramInclude),
		OrderBy:    multiValue(values, paramOrderBy),
		DistinctBy: strings.TrimSpace(values.Get(paramDistinctBy)),
		Export:     values.Has(paramExport),
		Filters:    values,
	}

	if raw := values.Get(paramPage); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page >= 1 {
			p.Page = page
		}
	}
	if raw := values.Get(paramLimit); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit >= 1 && limit <= d.maxLimit() {
			p.Limit = limit
		}
	}
	return p
}

// multiValue reads a repeatable parameter: a single occurrence is split
// on commas, multiple occurrences are taken as-is.
func multiValue(values url.Values, key string) []string {
	list := values[key]
	if len(list) == 1 {
		list = strings.Split(list[0], ",")
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
