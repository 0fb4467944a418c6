package resources

import (
	"context"
	"database/sql"

	"billing/internal/domain"
	"billing/internal/domain/models"
	"billing/internal/resource"
)

// NewPayments builds the read-only payment resource. Listings join dues
// so only payments against the caller's own dues are visible; all
// mutation checks refuse, since payment rows come from the gateway webhook.
func NewPayments(db *sql.DB) *resource.Resource {
	return &resource.Resource{
		Desc: resource.Descriptor{
			Table: models.PaymentTable,
			Filters: map[string][]string{
				"id":          {resource.OpEqual, resource.OpIn},
				"due_id":      {resource.OpEqual, resource.OpIn},
				"gateway_ref": {resource.OpEqual, resource.OpIn},
				"created_at":  {resource.OpDateEqual, resource.OpDateLTE, resource.OpDateGTE},
			},
			OrderBy:      []string{"created_at", "id", "due_id"},
			AuthRequired: true,
			Export:       true,
			Writable:     models.PaymentWritable,
		},
		Gate: paymentGate{},
		DB:   db,
	}
}

type paymentGate struct {
	resource.WriteDenied
}

func (paymentGate) Read(ctx context.Context, caller domain.Caller, q *resource.Query) *resource.Query {
	q.Join(models.DueTable, "dues.id = payments.due_id")
	return q.Where("dues.creator_id = ?", int64(caller.ID))
}
