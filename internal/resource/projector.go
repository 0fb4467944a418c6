package resource

import "sort"

// Projection is the effective field visibility for one request. The
// effective exclude set is the declared exclude list, plus every
// optional field the caller did not __include, plus the caller's own
// __exclude; a caller __only overrides the server only-list.
// Exclude always wins, even over a field also named in only: the
// server-declared exclusions can never be exposed.
type Projection struct {
	only    map[string]bool
	exclude map[string]bool
}

func NewProjection(d Descriptor, p Params) Projection {
	pr := Projection{exclude: map[string]bool{}}

	for _, f := range d.Exclude {
		pr.exclude[f] = true
	}

	included := map[string]bool{}
	for _, f := range p.Include {
		included[f] = true
	}
	for _, f := range d.Optional {
		if !included[f] {
			pr.exclude[f] = true
		}
	}
	for _, f := range p.Exclude {
		pr.exclude[f] = true
	}

	only := p.Only
	if len(only) == 0 {
		only = d.Only
	}
	if len(only) > 0 {
		pr.only = map[string]bool{}
		for _, f := range only {
			pr.only[f] = true
		}
	}
	return pr
}

// Excluded reports whether a field is hidden by the projection.
func (pr Projection) Excluded(field string) bool {
	if pr.exclude[field] {
		return true
	}
	return pr.only != nil && !pr.only[field]
}

// Apply returns a copy of rec with the projection applied.
func (pr Projection) Apply(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if !pr.Excluded(k) {
			out[k] = v
		}
	}
	return out
}

// ApplyAll projects every record.
func (pr Projection) ApplyAll(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, rec := range recs {
		out[i] = pr.Apply(rec)
	}
	return out
}

// Columns returns the visible field names of a record in stable order,
// used for CSV export headers.
func (pr Projection) Columns(rec Record) []string {
	var cols []string
	for k := range rec {
		if !pr.Excluded(k) {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}
