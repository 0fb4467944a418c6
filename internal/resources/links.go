// Package resources declares the per-entity resource configuration:
// allowed filters, field visibility, permission gates, and post-save
// hooks for every entity the API exposes.
package resources

import (
	"context"
	"database/sql"

	"billing/internal/domain"
	"billing/internal/domain/models"
	"billing/internal/resource"
)

// linkExists reports whether the caller-owned customer link exists.
// Evaluated fresh on every permission decision, never cached.
func linkExists(ctx context.Context, db *sql.DB, ownerID, customerID int64) bool {
	if ownerID <= 0 || customerID <= 0 {
		return false
	}
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM customer_links WHERE owner_id = ? AND customer_id = ?)",
		ownerID, customerID).Scan(&exists)
	return err == nil && exists
}

// NewCustomerLinks builds the association resource tying customers to
// the business owner who registered them. Mutations arrive as tagged
// batches (__action add/update/remove).
func NewCustomerLinks(db *sql.DB) *resource.AssociationResource {
	return &resource.AssociationResource{Resource: resource.Resource{
		Desc: resource.Descriptor{
			Table: models.CustomerLinkTable,
			Filters: map[string][]string{
				"id":          {resource.OpEqual, resource.OpIn},
				"owner_id":    {resource.OpEqual, resource.OpIn},
				"customer_id": {resource.OpEqual, resource.OpIn},
			},
			OrderBy:      []string{"id", "created_at"},
			AuthRequired: true,
			Writable:     models.CustomerLinkWritable,
		},
		Gate: linkGate{db: db},
		DB:   db,
		Validate: func(rec resource.Record) error {
			if rec.Int64("customer_id") <= 0 {
				return domain.ValidationError{Field: "customer_id", Msg: "required"}
			}
			return nil
		},
	}}
}

type linkGate struct {
	db *sql.DB
}

func (g linkGate) Read(ctx context.Context, caller domain.Caller, q *resource.Query) *resource.Query {
	return q.Where("customer_links.owner_id = ?", int64(caller.ID))
}

func (g linkGate) CanAdd(ctx context.Context, caller domain.Caller, recs []resource.Record) bool {
	if caller.Anonymous() {
		return false
	}
	for _, rec := range recs {
		rec["owner_id"] = int64(caller.ID)
	}
	return true
}

func (g linkGate) CanChange(ctx context.Context, caller domain.Caller, rec resource.Record) bool {
	return rec.Int64("owner_id") == int64(caller.ID)
}

func (g linkGate) CanDelete(ctx context.Context, caller domain.Caller, rec resource.Record) bool {
	return rec.Int64("owner_id") == int64(caller.ID)
}
