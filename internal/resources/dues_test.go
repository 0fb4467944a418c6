package resources

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"billing/internal/domain"
	"billing/internal/resource"
)

func TestValidateDue(t *testing.T) {
	cases := []struct {
		name string
		rec  resource.Record
		ok   bool
	}{
		{"fixed ok", resource.Record{
			"transaction_type": "fixed", "name": "rent", "amount": 100.0, "customer_id": 2,
		}, true},
		{"subscription needs due_date", resource.Record{
			"transaction_type": "subscription", "name": "gym", "amount": 50.0, "customer_id": 2,
		}, false},
		{"subscription ok", resource.Record{
			"transaction_type": "subscription", "name": "gym", "amount": 50.0,
			"customer_id": 2, "due_date": "2026-09-01",
		}, true},
		{"bad type", resource.Record{
			"transaction_type": "loan", "name": "x", "amount": 1.0, "customer_id": 2,
		}, false},
		{"blank name", resource.Record{
			"transaction_type": "fixed", "name": "  ", "amount": 1.0, "customer_id": 2,
		}, false},
		{"missing amount", resource.Record{
			"transaction_type": "fixed", "name": "x", "customer_id": 2,
		}, false},
		{"missing customer", resource.Record{
			"transaction_type": "fixed", "name": "x", "amount": 1.0,
		}, false},
	}

	for _, tc := range cases {
		err := validateDue(tc.rec)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !domain.IsValidation(err) {
			t.Errorf("%s: want validation error, got %v", tc.name, err)
		}
	}
}

func TestDueGateCanAddStampsCreatorAndRequiresLink(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	g := dueGate{db: db}
	rec := resource.Record{"customer_id": int64(2)}
	if !g.CanAdd(context.Background(), domain.Caller{ID: 7}, []resource.Record{rec}) {
		t.Fatal("linked customer refused")
	}
	if rec.Int64("creator_id") != 7 {
		t.Fatalf("creator not stamped: %v", rec)
	}

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	if g.CanAdd(context.Background(), domain.Caller{ID: 7}, []resource.Record{{"customer_id": int64(3)}}) {
		t.Fatal("unlinked customer accepted")
	}

	if g.CanAdd(context.Background(), domain.Caller{}, []resource.Record{{"customer_id": int64(2)}}) {
		t.Fatal("anonymous caller accepted")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDueGateNeverDeletes(t *testing.T) {
	g := dueGate{}
	if g.CanDelete(context.Background(), domain.Caller{ID: 1, Roles: []string{"admin"}}, resource.Record{"creator_id": int64(1)}) {
		t.Fatal("dues must never be deletable")
	}
}
