package resource

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"billing/internal/domain"
)

// ValidateFunc checks one record's shape before persistence. Returned
// errors should be domain.ValidationError so the dispatcher maps them
// to 400.
type ValidateFunc func(rec Record) error

// AfterSaveFunc runs after a successful commit. Failures are logged and
// never undo the committed persistence.
type AfterSaveFunc func(ctx context.Context, caller domain.Caller, recs []Record) error

// Resource binds a Descriptor, a Gate, and hooks to a database handle.
// Each mutation runs in exactly one transaction: committed on success,
// rolled back on every recognized failure, never spanning two requests.
type Resource struct {
	Desc      Descriptor
	Gate      Gate
	DB        *sql.DB
	Validate  ValidateFunc
	AfterSave AfterSaveFunc
}

// List applies filters, read-permission narrowing, ordering, and
// pagination, returning the page plus the total match count.
func (r *Resource) List(ctx context.Context, caller domain.Caller, p Params) ([]Record, int, error) {
	q := NewQuery(r.Desc.Table)
	ApplyFilters(q, r.Desc, p)
	q = r.Gate.Read(ctx, caller, q)
	ApplyOrdering(q, r.Desc, p)

	total, err := q.Count(ctx, r.DB)
	if err != nil {
		return nil, 0, storeFailure("Query Resource", nil, err)
	}

	limit := p.Limit
	page := p.Page
	if p.Export && r.Desc.Export {
		limit = r.Desc.exportLimit()
		page = 1
	}
	q.Paginate(page, limit)

	recs, err := q.All(ctx, r.DB)
	if err != nil {
		return nil, 0, storeFailure("Query Resource", nil, err)
	}
	return recs, total, nil
}

// Fetch loads one record by id, subject to read permission.
func (r *Resource) Fetch(ctx context.Context, caller domain.Caller, id int64) (Record, error) {
	q := NewQuery(r.Desc.Table)
	q.Where(r.Desc.Table+"."+r.Desc.idColumn()+" = ?", id)
	q = r.Gate.Read(ctx, caller, q)
	q.Paginate(1, 1)

	recs, err := q.All(ctx, r.DB)
	if err != nil {
		return nil, storeFailure("Query Resource", nil, err)
	}
	if len(recs) == 0 {
		return nil, domain.NotFoundError{Resource: r.Desc.Table}
	}
	return recs[0], nil
}

// Create validates and persists a batch. Add permission is evaluated
// over the whole batch before any insert; one refusal rejects
// everything. All inserts share one transaction.
func (r *Resource) Create(ctx context.Context, caller domain.Caller, payload []Record) ([]Record, error) {
	recs := make([]Record, len(payload))
	for i, rec := range payload {
		recs[i] = rec.Clone()
		if err := r.validate(recs[i]); err != nil {
			return nil, err
		}
	}

	if !r.Gate.CanAdd(ctx, caller, recs) {
		return nil, domain.ForbiddenError{Operation: "Add"}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeFailure("Adding Resource", payload, err)
	}

	now := time.Now()
	for _, rec := range recs {
		if err := r.insert(ctx, tx, rec, now); err != nil {
			tx.Rollback()
			return nil, storeFailure("Adding Resource", payload, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeFailure("Adding Resource", payload, err)
	}

	r.runAfterSave(ctx, caller, recs)
	return recs, nil
}

// Update applies a bulk update, each record resolved by the id in its
// payload. Change permission is checked before and after merging
// incoming fields; the batch commits once, so any failure rolls back
// every record in the call.
func (r *Resource) Update(ctx context.Context, caller domain.Caller, payload []Record) ([]Record, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeFailure("Updating Resource", payload, err)
	}

	now := time.Now()
	out := make([]Record, 0, len(payload))
	for _, patch := range payload {
		merged, err := r.updateOne(ctx, caller, tx, patch, now)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		out = append(out, merged)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeFailure("Updating Resource", payload, err)
	}

	r.runAfterSave(ctx, caller, out)
	return out, nil
}

// Patch partially updates one record.
func (r *Resource) Patch(ctx context.Context, caller domain.Caller, id int64, patch Record) (Record, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeFailure("Updating Resource", patch, err)
	}

	existing, err := r.fetchByID(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if existing == nil {
		tx.Rollback()
		return nil, domain.NotFoundError{Resource: r.Desc.Table}
	}
	if !r.Gate.CanChange(ctx, caller, existing) {
		tx.Rollback()
		return nil, domain.ForbiddenError{Operation: "Change"}
	}

	merged, err := r.applyChange(ctx, caller, tx, existing, patch, time.Now())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storeFailure("Updating Resource", patch, err)
	}

	r.runAfterSave(ctx, caller, []Record{merged})
	return merged, nil
}

// Delete removes one record if the gate allows it.
func (r *Resource) Delete(ctx context.Context, caller domain.Caller, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeFailure("Deleting Resource", id, err)
	}

	existing, err := r.fetchByID(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if existing == nil {
		tx.Rollback()
		return domain.NotFoundError{Resource: r.Desc.Table}
	}
	if !r.Gate.CanDelete(ctx, caller, existing) {
		tx.Rollback()
		return domain.ForbiddenError{Operation: "Delete"}
	}

	stmt := "DELETE FROM " + r.Desc.Table + " WHERE " + r.Desc.idColumn() + " = ?"
	if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
		tx.Rollback()
		return storeFailure("Deleting Resource", id, err)
	}
	if err := tx.Commit(); err != nil {
		return storeFailure("Deleting Resource", id, err)
	}
	return nil
}

// updateOne resolves, permission-checks, merges, re-checks, and writes
// one record of a bulk update inside the shared transaction.
func (r *Resource) updateOne(ctx context.Context, caller domain.Caller, tx *sql.Tx, patch Record, now time.Time) (Record, error) {
	id := patch.Int64(r.Desc.idColumn())
	existing, err := r.fetchByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	// a missing or foreign row is indistinguishable to the caller
	if existing == nil || !r.Gate.CanChange(ctx, caller, existing) {
		return nil, domain.ForbiddenError{Operation: "Change"}
	}
	return r.applyChange(ctx, caller, tx, existing, patch, now)
}

// applyChange merges writable fields into existing, validates, re-checks
// change permission on the merged record, and issues the UPDATE.
func (r *Resource) applyChange(ctx context.Context, caller domain.Caller, tx *sql.Tx, existing, patch Record, now time.Time) (Record, error) {
	merged := existing.Clone()
	var sets []string
	var args []any
	for _, col := range r.Desc.Writable {
		if !patch.Has(col) {
			continue
		}
		merged[col] = patch[col]
		sets = append(sets, col+" = ?")
		args = append(args, patch[col])
	}

	if err := r.validate(merged); err != nil {
		return nil, err
	}
	if !r.Gate.CanChange(ctx, caller, merged) {
		return nil, domain.ForbiddenError{Operation: "Change"}
	}
	if len(sets) == 0 {
		return merged, nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now, merged.Int64(r.Desc.idColumn()))
	merged["updated_at"] = now

	stmt := "UPDATE " + r.Desc.Table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + r.Desc.idColumn() + " = ?"
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return nil, storeFailure("Updating Resource", patch, err)
	}
	return merged, nil
}

func (r *Resource) insert(ctx context.Context, tx *sql.Tx, rec Record, now time.Time) error {
	var cols []string
	var args []any
	for _, col := range r.Desc.Writable {
		if rec.Has(col) {
			cols = append(cols, col)
			args = append(args, rec[col])
		}
	}
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt := "INSERT INTO " + r.Desc.Table + " (" + strings.Join(cols, ", ") +
		") VALUES (" + placeholders + ")"
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		rec[r.Desc.idColumn()] = id
	}
	rec["created_at"] = now
	rec["updated_at"] = now
	return nil
}

// fetchByID loads a row inside the current transaction; nil means no row.
func (r *Resource) fetchByID(ctx context.Context, db DBTX, id int64) (Record, error) {
	if id <= 0 {
		return nil, nil
	}
	stmt := "SELECT " + r.Desc.Table + ".* FROM " + r.Desc.Table +
		" WHERE " + r.Desc.idColumn() + " = ? LIMIT 1"
	rows, err := db.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, storeFailure("Query Resource", id, err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, storeFailure("Query Resource", id, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (r *Resource) validate(rec Record) error {
	if r.Validate == nil {
		return nil
	}
	return r.Validate(rec)
}

// runAfterSave executes the post-commit hook. The commit already
// happened; a hook failure is logged and swallowed so a side effect can
// never break the primary request.
func (r *Resource) runAfterSave(ctx context.Context, caller domain.Caller, recs []Record) {
	if r.AfterSave == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[RESOURCE] table=%s after-save panic: %v", r.Desc.Table, rec)
		}
	}()
	if err := r.AfterSave(ctx, caller, recs); err != nil {
		log.Printf("[RESOURCE] table=%s after-save failed: %v", r.Desc.Table, err)
	}
}
