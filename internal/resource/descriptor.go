package resource

// ExternalFilter targets a joined entity: applying it joins Table on
// Table.JoinColumn = <primary>.<id> before the operator runs against
// the joined table's column.
type ExternalFilter struct {
	Table      string
	JoinColumn string
	Ops        []string
}

// Descriptor is the immutable per-entity configuration: which filters and
// orderings a request may use, pagination bounds, field visibility
// defaults, auth requirements, and the writable column set.
type Descriptor struct {
	Table    string
	IDColumn string

	// Filters maps a field name to the operator names permitted on it.
	// A request token <field>__<op> is honored only when field is a key
	// here and op is in its set; anything else is silently ignored.
	Filters         map[string][]string
	ExternalFilters map[string]ExternalFilter

	// FieldExprs optionally substitutes a SQL expression for a filter
	// field, for computed values such as "is_paid".
	FieldExprs map[string]string

	OrderBy []string

	Only     []string
	Exclude  []string
	Optional []string

	DefaultLimit int
	MaxLimit     int

	AuthRequired  bool
	RolesRequired []string
	RolesAccepted []string

	Export         bool
	MaxExportLimit int

	// Writable lists the columns mutation payloads may set, in insert
	// order. Anything else in a payload is dropped before persistence.
	Writable []string
}

const (
	defaultLimit    = 50
	defaultMaxLimit = 100
	defaultExport   = 5000
)

func (d Descriptor) idColumn() string {
	if d.IDColumn != "" {
		return d.IDColumn
	}
	return "id"
}

func (d Descriptor) defaultLimit() int {
	if d.DefaultLimit > 0 {
		return d.DefaultLimit
	}
	return defaultLimit
}

func (d Descriptor) maxLimit() int {
	if d.MaxLimit > 0 {
		return d.MaxLimit
	}
	return defaultMaxLimit
}

func (d Descriptor) exportLimit() int {
	if d.MaxExportLimit > 0 {
		return d.MaxExportLimit
	}
	return defaultExport
}

func (d Descriptor) orderable(field string) bool {
	for _, f := range d.OrderBy {
		if f == field {
			return true
		}
	}
	return false
}

// filterColumn resolves the SQL column (or expression) a filter field
// refers to on the given table.
func (d Descriptor) filterColumn(table, field string) string {
	if expr, ok := d.FieldExprs[field]; ok {
		return expr
	}
	return table + "." + field
}
