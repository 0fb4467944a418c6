package resource

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"billing/internal/domain"
)

// stubGate answers permission checks from fixed flags.
type stubGate struct {
	add, change, del bool
}

func (g stubGate) Read(ctx context.Context, caller domain.Caller, q *Query) *Query { return q }
func (g stubGate) CanAdd(ctx context.Context, caller domain.Caller, recs []Record) bool {
	return g.add
}
func (g stubGate) CanChange(ctx context.Context, caller domain.Caller, rec Record) bool {
	return g.change
}
func (g stubGate) CanDelete(ctx context.Context, caller domain.Caller, rec Record) bool {
	return g.del
}

func testResource(t *testing.T, gate Gate) (*Resource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &Resource{
		Desc: Descriptor{
			Table:    "items",
			Writable: []string{"name", "amount"},
		},
		Gate: gate,
		DB:   db,
	}, mock
}

func TestCreateBatchCommitsOnce(t *testing.T) {
	res, mock := testResource(t, stubGate{add: true})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO items").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("INSERT INTO items").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	out, err := res.Create(context.Background(), domain.Caller{ID: 1},
		[]Record{{"name": "a", "amount": 10}, {"name": "b", "amount": 20}})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if out[0].Int64("id") != 11 || out[1].Int64("id") != 12 {
		t.Fatalf("ids not assigned: %v %v", out[0], out[1])
	}
	if !out[0].Has("created_at") {
		t.Fatal("created_at not stamped")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRollsBackWholeBatchOnFailure(t *testing.T) {
	res, mock := testResource(t, stubGate{add: true})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO items").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("INSERT INTO items").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate"})
	mock.ExpectRollback()

	_, err := res.Create(context.Background(), domain.Caller{ID: 1},
		[]Record{{"name": "a"}, {"name": "a"}})
	store, ok := domain.AsStoreError(err)
	if !ok {
		t.Fatalf("want StoreError, got %v", err)
	}
	if store.Kind != domain.StoreIntegrity || store.Status != 400 {
		t.Fatalf("duplicate not classified as integrity/400: %+v", store)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateValidationFailureTouchesNothing(t *testing.T) {
	res, mock := testResource(t, stubGate{add: true})
	res.Validate = func(rec Record) error {
		if rec.String("name") == "" {
			return domain.ValidationError{Field: "name", Msg: "required"}
		}
		return nil
	}

	_, err := res.Create(context.Background(), domain.Caller{ID: 1},
		[]Record{{"name": "ok"}, {"amount": 5}})
	if !domain.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}

	// no Begin was ever expected; any DB touch fails the test
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db touched on validation failure: %v", err)
	}
}

func TestCreateGateRefusalRejectsBatch(t *testing.T) {
	res, mock := testResource(t, stubGate{add: false})

	_, err := res.Create(context.Background(), domain.Caller{ID: 1}, []Record{{"name": "a"}})
	if !domain.IsForbidden(err) {
		t.Fatalf("want forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db touched on gate refusal: %v", err)
	}
}

func TestUpdateMissingRowIsForbiddenAndRollsBack(t *testing.T) {
	res, mock := testResource(t, stubGate{change: true})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	_, err := res.Update(context.Background(), domain.Caller{ID: 1},
		[]Record{{"id": 42, "name": "x"}})
	if !domain.IsForbidden(err) {
		t.Fatalf("missing row in bulk update should read as forbidden, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPatchMergesAndCommits(t *testing.T) {
	res, mock := testResource(t, stubGate{change: true})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "amount"}).
			AddRow(int64(5), "old", int64(10)))
	mock.ExpectExec("UPDATE items SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := res.Patch(context.Background(), domain.Caller{ID: 1}, 5, Record{"name": "new", "ignored": "x"})
	if err != nil {
		t.Fatalf("patch error: %v", err)
	}
	if out.String("name") != "new" || out.Int64("amount") != 10 {
		t.Fatalf("merge wrong: %v", out)
	}
	if out.Has("ignored") {
		t.Fatal("non-writable field merged")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// linkedGate ties change permission to the customer the record points
// at, so the post-merge re-check has something to refuse.
type linkedGate struct{ allowed int64 }

func (g linkedGate) Read(ctx context.Context, caller domain.Caller, q *Query) *Query { return q }
func (g linkedGate) CanAdd(ctx context.Context, caller domain.Caller, recs []Record) bool {
	return true
}
func (g linkedGate) CanChange(ctx context.Context, caller domain.Caller, rec Record) bool {
	return rec.Int64("customer_id") == g.allowed
}
func (g linkedGate) CanDelete(ctx context.Context, caller domain.Caller, rec Record) bool {
	return false
}

func TestPatchRecheckedAfterMerge(t *testing.T) {
	res, mock := testResource(t, linkedGate{allowed: 7})
	res.Desc.Writable = []string{"name", "customer_id"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "customer_id"}).
			AddRow(int64(5), "rent", int64(7)))
	mock.ExpectRollback()

	// the existing row passes the pre-check; the merged record points
	// at a foreign customer and must be refused before any UPDATE
	_, err := res.Patch(context.Background(), domain.Caller{ID: 1}, 5,
		Record{"customer_id": 9})
	if !domain.IsForbidden(err) {
		t.Fatalf("want forbidden after merge, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("update issued despite post-merge refusal: %v", err)
	}
}

func TestPatchReappliedChangesNothingFurther(t *testing.T) {
	res, mock := testResource(t, linkedGate{allowed: 7})
	res.Desc.Writable = []string{"name", "customer_id"}
	patch := Record{"name": "new"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "customer_id"}).
			AddRow(int64(5), "old", int64(7)))
	mock.ExpectExec("UPDATE items SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	first, err := res.Patch(context.Background(), domain.Caller{ID: 1}, 5, patch)
	if err != nil {
		t.Fatalf("first patch error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "customer_id"}).
			AddRow(int64(5), "new", int64(7)))
	mock.ExpectExec("UPDATE items SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	second, err := res.Patch(context.Background(), domain.Caller{ID: 1}, 5, patch)
	if err != nil {
		t.Fatalf("repeated patch error: %v", err)
	}
	if second.String("name") != first.String("name") ||
		second.Int64("customer_id") != first.Int64("customer_id") {
		t.Fatalf("repeat changed the record: %v vs %v", second, first)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreFailureFlagsGroupingMismatch(t *testing.T) {
	err := storeFailure("Query Resource", nil,
		&mysql.MySQLError{Number: 1055, Message: "nonaggregated column"})
	store, ok := domain.AsStoreError(err)
	if !ok {
		t.Fatalf("want StoreError, got %v", err)
	}
	if store.Kind != domain.StoreInvalidRequest || store.Status != 400 {
		t.Fatalf("grouping mismatch not classified as invalid-request/400: %+v", store)
	}
}

func TestPatchPermissionDenialRollsBack(t *testing.T) {
	res, mock := testResource(t, stubGate{change: false})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "old"))
	mock.ExpectRollback()

	_, err := res.Patch(context.Background(), domain.Caller{ID: 1}, 5, Record{"name": "new"})
	if !domain.IsForbidden(err) {
		t.Fatalf("want forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteRefusedByGate(t *testing.T) {
	res, mock := testResource(t, stubGate{del: false})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectRollback()

	err := res.Delete(context.Background(), domain.Caller{ID: 1}, 5)
	if !domain.IsForbidden(err) {
		t.Fatalf("want forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("delete issued despite refusal: %v", err)
	}
}

func TestDeleteCommits(t *testing.T) {
	res, mock := testResource(t, stubGate{del: true})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT items\\.\\* FROM items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec("DELETE FROM items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := res.Delete(context.Background(), domain.Caller{ID: 1}, 5); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
