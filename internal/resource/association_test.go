package resource

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"billing/internal/domain"
)

func testAssociation(t *testing.T, gate Gate) (*AssociationResource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &AssociationResource{Resource: Resource{
		Desc: Descriptor{
			Table:    "links",
			Writable: []string{"owner_id", "customer_id"},
		},
		Gate: gate,
		DB:   db,
	}}, mock
}

func TestApplyBatchAddsUnderSavepoints(t *testing.T) {
	res, mock := testAssociation(t, stubGate{add: true})

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO links").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("SAVEPOINT sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO links").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := res.ApplyBatch(context.Background(), domain.Caller{ID: 1}, []Record{
		{"__action": "add", "owner_id": 1, "customer_id": 2},
		{"__action": "add", "owner_id": 1, "customer_id": 3},
	})
	if err != nil {
		t.Fatalf("batch error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyBatchFailingItemAbortsWholeBatch(t *testing.T) {
	res, mock := testAssociation(t, stubGate{add: true})

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO links").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("SAVEPOINT sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO links").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate"})
	mock.ExpectExec("ROLLBACK TO sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := res.ApplyBatch(context.Background(), domain.Caller{ID: 1}, []Record{
		{"__action": "add", "owner_id": 1, "customer_id": 2},
		{"__action": "add", "owner_id": 1, "customer_id": 2},
	})
	store, ok := domain.AsStoreError(err)
	if !ok || store.Kind != domain.StoreIntegrity {
		t.Fatalf("want integrity store error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyBatchUnknownActionIsValidationError(t *testing.T) {
	res, mock := testAssociation(t, stubGate{add: true})

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK TO sp_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := res.ApplyBatch(context.Background(), domain.Caller{ID: 1},
		[]Record{{"__action": "merge"}})
	if !domain.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyBatchRemoveResolvesByNaturalKey(t *testing.T) {
	res, mock := testAssociation(t, stubGate{del: true})

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT links\\.\\* FROM links WHERE owner_id = \\? AND customer_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "customer_id"}).
			AddRow(int64(9), int64(1), int64(2)))
	mock.ExpectExec("DELETE FROM links").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := res.ApplyBatch(context.Background(), domain.Caller{ID: 1},
		[]Record{{"__action": "remove", "owner_id": 1, "customer_id": 2}})
	if err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
