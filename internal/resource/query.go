package resource

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Query composes a SELECT over one primary table: WHERE fragments with
// args, idempotent named joins, ordering, optional de-duplication, and
// pagination. Identical predicates are applied once, so re-applying an
// operator with the same value leaves the result set unchanged.
type Query struct {
	table string

	joins  []string
	joined map[string]bool

	wheres    []string
	args      []any
	whereSeen map[string]bool

	orderBy  []string
	groupBy  string
	groupKey string

	limit  int
	offset int
}

func NewQuery(table string) *Query {
	return &Query{
		table:     table,
		joined:    map[string]bool{},
		whereSeen: map[string]bool{},
	}
}

func (q *Query) Table() string { return q.table }

// Where appends an AND-ed predicate. A predicate with identical text and
// args that was already applied is skipped.
func (q *Query) Where(cond string, args ...any) *Query {
	key := cond + "\x00" + fmt.Sprint(args...)
	if q.whereSeen[key] {
		return q
	}
	q.whereSeen[key] = true
	q.wheres = append(q.wheres, cond)
	q.args = append(q.args, args...)
	return q
}

// Join adds an INNER JOIN once per target table.
func (q *Query) Join(table, on string) *Query {
	if q.joined[table] {
		return q
	}
	q.joined[table] = true
	q.joins = append(q.joins, "JOIN "+table+" ON "+on)
	return q
}

// Joined reports whether the target table is already joined.
func (q *Query) Joined(table string) bool { return q.joined[table] }

// Order appends an ORDER BY column.
func (q *Query) Order(col string, desc bool) *Query {
	if desc {
		col += " DESC"
	}
	q.orderBy = append(q.orderBy, col)
	return q
}

// DistinctBy collapses the result set to one row per value of col,
// keeping the row with the lowest key. key must be the primary-table
// id column.
func (q *Query) DistinctBy(col, key string) *Query {
	q.groupBy = col
	q.groupKey = key
	return q
}

// Paginate sets LIMIT/OFFSET from a 1-based page.
func (q *Query) Paginate(page, limit int) *Query {
	if page < 1 {
		page = 1
	}
	q.limit = limit
	q.offset = (page - 1) * limit
	return q
}

// SelectSQL renders the SELECT statement and its args.
func (q *Query) SelectSQL() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT " + q.table + ".* FROM " + q.table)
	if q.groupBy != "" {
		// a bare GROUP BY over the full select list is rejected under
		// ONLY_FULL_GROUP_BY, so deduplication goes through a keyed
		// subquery instead
		b.WriteString(" WHERE " + q.groupKey + " IN (SELECT MIN(" + q.groupKey + ") FROM " + q.table)
		q.writeCore(&b)
		b.WriteString(" GROUP BY " + q.groupBy + ")")
	} else {
		q.writeCore(&b)
	}
	if len(q.orderBy) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", q.limit, q.offset))
	}
	return b.String(), append([]any(nil), q.args...)
}

// CountSQL renders the matching COUNT statement.
func (q *Query) CountSQL() (string, []any) {
	var b strings.Builder
	if q.groupBy != "" {
		b.WriteString("SELECT COUNT(DISTINCT " + q.groupBy + ") FROM " + q.table)
	} else {
		b.WriteString("SELECT COUNT(*) FROM " + q.table)
	}
	q.writeCore(&b)
	return b.String(), append([]any(nil), q.args...)
}

func (q *Query) writeCore(b *strings.Builder) {
	for _, j := range q.joins {
		b.WriteString(" " + j)
	}
	if len(q.wheres) > 0 {
		b.WriteString(" WHERE " + strings.Join(q.wheres, " AND "))
	}
}

// All runs the SELECT and scans every row generically into Records.
func (q *Query) All(ctx context.Context, db DBTX) ([]Record, error) {
	stmt, args := q.SelectSQL()
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Count runs the COUNT variant.
func (q *Query) Count(ctx context.Context, db DBTX) (int, error) {
	stmt, args := q.CountSQL()
	var n int
	if err := db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			switch v := vals[i].(type) {
			case []byte:
				rec[c] = string(v)
			default:
				rec[c] = v
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ApplyFilters walks every __<field>__<operator> token in the request and
// applies the ones the descriptor declares; unknown fields, unknown
// operators, and malformed values are no-ops. External filter fields join
// their target table exactly once. A __distinct_by parameter collapses
// the result by the named primary-table column.
func ApplyFilters(q *Query, d Descriptor, p Params) *Query {
	keys := make([]string, 0, len(p.Filters))
	for k := range p.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.Split(key, "__")
		if len(parts) != 3 || parts[0] != "" {
			continue
		}
		field, opName := parts[1], parts[2]
		raw := p.Filters.Get(key)

		if allowed, ok := d.Filters[field]; ok {
			for _, name := range allowed {
				if name != opName {
					continue
				}
				if op, ok := LookupOperator(name); ok {
					op(q, d.filterColumn(q.table, field), raw)
				}
			}
			continue
		}

		ext, ok := d.ExternalFilters[field]
		if !ok {
			continue
		}
		for _, name := range ext.Ops {
			if name != opName {
				continue
			}
			op, ok := LookupOperator(name)
			if !ok {
				continue
			}
			q.Join(ext.Table, fmt.Sprintf("%s.%s = %s.%s",
				ext.Table, ext.JoinColumn, q.table, d.idColumn()))
			op(q, ext.Table+"."+field, raw)
		}
	}

	if p.DistinctBy != "" && isIdent(p.DistinctBy) {
		q.DistinctBy(q.table+"."+p.DistinctBy, q.table+"."+d.idColumn())
	}
	return q
}

// ApplyOrdering applies __order_by tokens ("-" prefix for descending),
// restricted to the descriptor's orderable fields; unknown tokens are
// dropped.
func ApplyOrdering(q *Query, d Descriptor, p Params) *Query {
	for _, token := range p.OrderBy {
		desc := strings.HasPrefix(token, "-")
		field := strings.TrimPrefix(token, "-")
		if d.orderable(field) {
			q.Order(q.table+"."+field, desc)
		}
	}
	return q
}

// isIdent guards caller-supplied identifiers that end up in SQL text.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
