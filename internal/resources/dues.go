package resources

import (
	"context"
	"database/sql"
	"strings"

	"billing/internal/domain"
	"billing/internal/domain/models"
	"billing/internal/resource"
)

// isPaidExpr lets clients filter dues on a computed paid state: a fixed
// due with at least one payment row.
const isPaidExpr = "((SELECT COUNT(*) FROM payments" +
	" WHERE payments.due_id = dues.id AND dues.transaction_type = 'fixed') > 0)"

// NewDues builds the due resource. Reads are narrowed to the creator;
// creating a due requires an existing customer link for every record in
// the batch; deletes are always refused.
func NewDues(db *sql.DB, afterSave resource.AfterSaveFunc) *resource.Resource {
	return &resource.Resource{
		Desc: resource.Descriptor{
			Table: models.DueTable,
			Filters: map[string][]string{
				"id":               {resource.OpEqual, resource.OpIn},
				"creator_id":       {resource.OpEqual, resource.OpIn},
				"customer_id":      {resource.OpEqual, resource.OpIn},
				"transaction_type": {resource.OpEqual, resource.OpIn},
				"created_at":       {resource.OpDateEqual, resource.OpDateLTE, resource.OpDateGTE},
				"due_date":         {resource.OpDateEqual, resource.OpDateLTE, resource.OpDateGTE},
				"is_paid":          {resource.OpBool},
				"is_cancelled":     {resource.OpBool},
			},
			FieldExprs:   map[string]string{"is_paid": isPaidExpr},
			OrderBy:      []string{"created_at", "id", "due_date"},
			Exclude:      []string{"gateway_ref"},
			AuthRequired: true,
			Export:       true,
			Writable:     models.DueWritable,
		},
		Gate:      dueGate{db: db},
		DB:        db,
		Validate:  validateDue,
		AfterSave: afterSave,
	}
}

func validateDue(rec resource.Record) error {
	switch rec.String("transaction_type") {
	case models.TransactionFixed, models.TransactionSubscription:
	default:
		return domain.ValidationError{Field: "transaction_type", Msg: "must be fixed or subscription"}
	}
	if strings.TrimSpace(rec.String("name")) == "" {
		return domain.ValidationError{Field: "name", Msg: "required"}
	}
	if !rec.Has("amount") {
		return domain.ValidationError{Field: "amount", Msg: "required"}
	}
	if rec.Int64("customer_id") <= 0 {
		return domain.ValidationError{Field: "customer_id", Msg: "required"}
	}
	if rec.String("transaction_type") == models.TransactionSubscription && !rec.Has("due_date") {
		return domain.ValidationError{Field: "due_date", Msg: "required for subscriptions"}
	}
	return nil
}

type dueGate struct {
	db *sql.DB
}

func (g dueGate) Read(ctx context.Context, caller domain.Caller, q *resource.Query) *resource.Query {
	return q.Where("dues.creator_id = ?", int64(caller.ID))
}

// CanAdd stamps the caller as creator and requires a customer link for
// every record; one unlinked customer rejects the whole batch.
func (g dueGate) CanAdd(ctx context.Context, caller domain.Caller, recs []resource.Record) bool {
	if caller.Anonymous() {
		return false
	}
	for _, rec := range recs {
		rec["creator_id"] = int64(caller.ID)
		if !linkExists(ctx, g.db, int64(caller.ID), rec.Int64("customer_id")) {
			return false
		}
	}
	return true
}

func (g dueGate) CanChange(ctx context.Context, caller domain.Caller, rec resource.Record) bool {
	return rec.Int64("creator_id") == int64(caller.ID) &&
		linkExists(ctx, g.db, int64(caller.ID), rec.Int64("customer_id"))
}

func (g dueGate) CanDelete(context.Context, domain.Caller, resource.Record) bool {
	return false
}
