package resources

import (
	"context"
	"database/sql"
	"strings"

	"billing/internal/domain"
	"billing/internal/domain/models"
	"billing/internal/resource"
)

// NewUsers builds the user resource. The password column can never be
// exposed; login metadata is hidden unless explicitly included. The
// external filter lets an owner narrow customers by attributes of the
// dues issued against them.
func NewUsers(db *sql.DB) *resource.Resource {
	return &resource.Resource{
		Desc: resource.Descriptor{
			Table: models.UserTable,
			Filters: map[string][]string{
				"id":            {resource.OpEqual, resource.OpIn},
				"email":         {resource.OpEqual, resource.OpContains},
				"first_name":    {resource.OpEqual, resource.OpStartsWith},
				"mobile_number": {resource.OpEqual, resource.OpIn},
				"active":        {resource.OpBool},
			},
			ExternalFilters: map[string]resource.ExternalFilter{
				"transaction_type": {
					Table:      models.DueTable,
					JoinColumn: "customer_id",
					Ops:        []string{resource.OpEqual, resource.OpIn},
				},
				"is_cancelled": {
					Table:      models.DueTable,
					JoinColumn: "customer_id",
					Ops:        []string{resource.OpBool},
				},
			},
			OrderBy: []string{"email", "id", "first_name"},
			Exclude: []string{"password"},
			Optional: []string{
				"confirmed_at", "last_login_at", "last_login_ip",
				"current_login_at", "current_login_ip", "login_count",
				"gateway_customer_id",
			},
			AuthRequired:  true,
			RolesAccepted: []string{"admin", "owner", "staff"},
			Writable:      models.UserWritable,
		},
		Gate:     userGate{db: db},
		DB:       db,
		Validate: validateUser,
	}
}

func validateUser(rec resource.Record) error {
	if strings.TrimSpace(rec.String("first_name")) == "" {
		return domain.ValidationError{Field: "first_name", Msg: "required"}
	}
	if strings.TrimSpace(rec.String("mobile_number")) == "" {
		return domain.ValidationError{Field: "mobile_number", Msg: "required"}
	}
	return nil
}

type userGate struct {
	db *sql.DB
}

// Read exposes the caller's own row and the customers linked to them.
func (g userGate) Read(ctx context.Context, caller domain.Caller, q *resource.Query) *resource.Query {
	return q.Where(
		"(users.id = ? OR users.id IN (SELECT customer_id FROM customer_links WHERE owner_id = ?))",
		int64(caller.ID), int64(caller.ID))
}

func (g userGate) CanAdd(ctx context.Context, caller domain.Caller, recs []resource.Record) bool {
	return caller.HasAnyRole("admin", "owner")
}

func (g userGate) CanChange(ctx context.Context, caller domain.Caller, rec resource.Record) bool {
	if caller.HasAnyRole("admin", "owner") {
		return rec.Int64("id") == int64(caller.ID) ||
			linkExists(ctx, g.db, int64(caller.ID), rec.Int64("id"))
	}
	return rec.Int64("id") == int64(caller.ID)
}

func (g userGate) CanDelete(ctx context.Context, caller domain.Caller, rec resource.Record) bool {
	return caller.HasAnyRole("admin") && rec.Int64("id") != int64(caller.ID)
}
