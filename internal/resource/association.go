package resource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"billing/internal/domain"
)

// Association batch action tags.
const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionRemove = "remove"
)

const actionKey = "__action"

// AssociationResource mutates link-style entities in tagged batches:
// every item carries an __action of add, update, or remove. Each item
// runs inside a SAVEPOINT so its own failure is undone at the
// checkpoint, but the batch commits as one outer transaction, so a
// failing item aborts and rolls back the whole batch. The
// per-item checkpoint bounds how much of a half-applied item can leak
// into the session, not what ultimately commits.
type AssociationResource struct {
	Resource
}

// ApplyBatch runs a tagged batch. On the first failing item the outer
// transaction is rolled back and the item's error returned.
func (r *AssociationResource) ApplyBatch(ctx context.Context, caller domain.Caller, items []Record) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeFailure("Updating Relation", items, err)
	}

	now := time.Now()
	for i, item := range items {
		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			tx.Rollback()
			return storeFailure("Updating Relation", item, err)
		}
		if err := r.applyItem(ctx, caller, tx, item, now); err != nil {
			tx.ExecContext(ctx, "ROLLBACK TO "+sp)
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeFailure("Updating Relation", items, err)
	}
	return nil
}

func (r *AssociationResource) applyItem(ctx context.Context, caller domain.Caller, tx *sql.Tx, item Record, now time.Time) error {
	switch item.String(actionKey) {
	case ActionAdd:
		return r.addRelation(ctx, caller, tx, item, now)
	case ActionUpdate:
		return r.updateRelation(ctx, caller, tx, item, now)
	case ActionRemove:
		return r.removeRelation(ctx, caller, tx, item)
	default:
		return domain.ValidationError{Field: actionKey, Msg: "must be add, update or remove"}
	}
}

func (r *AssociationResource) addRelation(ctx context.Context, caller domain.Caller, tx *sql.Tx, item Record, now time.Time) error {
	if err := r.validate(item); err != nil {
		return err
	}
	if !r.Gate.CanAdd(ctx, caller, []Record{item}) {
		return domain.ForbiddenError{Operation: "Add"}
	}
	if err := r.insert(ctx, tx, item, now); err != nil {
		return storeFailure("Adding Relation", item, err)
	}
	return nil
}

func (r *AssociationResource) updateRelation(ctx context.Context, caller domain.Caller, tx *sql.Tx, item Record, now time.Time) error {
	existing, err := r.fetchByID(ctx, tx, item.Int64(r.Desc.idColumn()))
	if err != nil {
		return err
	}
	if existing == nil || !r.Gate.CanChange(ctx, caller, existing) {
		return domain.NotFoundError{Resource: r.Desc.Table}
	}
	if _, err := r.applyChange(ctx, caller, tx, existing, item, now); err != nil {
		return err
	}
	return nil
}

// removeRelation resolves the row by every writable column present in
// the item, so callers may address a link by its natural key instead of
// its id.
func (r *AssociationResource) removeRelation(ctx context.Context, caller domain.Caller, tx *sql.Tx, item Record) error {
	var conds []string
	var args []any
	if item.Has(r.Desc.idColumn()) {
		conds = append(conds, r.Desc.idColumn()+" = ?")
		args = append(args, item.Int64(r.Desc.idColumn()))
	}
	for _, col := range r.Desc.Writable {
		if item.Has(col) {
			conds = append(conds, col+" = ?")
			args = append(args, item[col])
		}
	}
	if len(conds) == 0 {
		return domain.ValidationError{Msg: "no columns to resolve relation"}
	}

	stmt := "SELECT " + r.Desc.Table + ".* FROM " + r.Desc.Table +
		" WHERE " + strings.Join(conds, " AND ") + " LIMIT 1"
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return storeFailure("Deleting Relation", item, err)
	}
	recs, err := scanRecords(rows)
	rows.Close()
	if err != nil {
		return storeFailure("Deleting Relation", item, err)
	}
	if len(recs) == 0 {
		return domain.NotFoundError{Resource: r.Desc.Table}
	}
	if !r.Gate.CanDelete(ctx, caller, recs[0]) {
		return domain.ForbiddenError{Operation: "Delete"}
	}

	del := "DELETE FROM " + r.Desc.Table + " WHERE " + r.Desc.idColumn() + " = ?"
	if _, err := tx.ExecContext(ctx, del, recs[0].Int64(r.Desc.idColumn())); err != nil {
		return storeFailure("Deleting Relation", item, err)
	}
	return nil
}
