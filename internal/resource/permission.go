package resource

import (
	"context"

	"billing/internal/domain"
)

// Gate is the four-operation authorization contract evaluated per
// request. Decisions are never cached: the pipeline re-evaluates
// CanChange after applying incoming changes, since a changed foreign key
// can flip the decision.
type Gate interface {
	// Read narrows a listing query to the rows the caller may see.
	// It never fails; an over-restricted query simply yields nothing.
	Read(ctx context.Context, caller domain.Caller, q *Query) *Query

	// CanAdd is evaluated over the entire batch before anything is
	// persisted; one refused record rejects the whole batch. Gates may
	// normalize ownership columns (e.g. force creator_id) here.
	CanAdd(ctx context.Context, caller domain.Caller, recs []Record) bool

	CanChange(ctx context.Context, caller domain.Caller, rec Record) bool
	CanDelete(ctx context.Context, caller domain.Caller, rec Record) bool
}

// WriteDenied implements the three mutation checks with a refusal,
// for read-only resources.
type WriteDenied struct{}

func (WriteDenied) CanAdd(context.Context, domain.Caller, []Record) bool  { return false }
func (WriteDenied) CanChange(context.Context, domain.Caller, Record) bool { return false }
func (WriteDenied) CanDelete(context.Context, domain.Caller, Record) bool { return false }
