package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func orderRows(id uuid.UUID, phone string, due, paid float64, status Status) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "group_id", "agency_id", "phone", "customer_name", "items", "quartier", "carrier",
		"amount_due", "amount_paid", "status", "source_message_id", "created_at", "updated_at",
	}).AddRow(id, "group-1", "agency-1", phone, "", "2 robes", "Akwa", "", due, paid, string(status), "msg-1", now, now)
}

func TestPostgresCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), "group-1", "agency-1", "612345678", "Marie", "2 robes", "Akwa", "", 15000.0, "pending", "msg-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	order, err := repo.Create(context.Background(), &CreateOrderRequest{
		GroupID:         "group-1",
		AgencyID:        "agency-1",
		Phone:           "612345678",
		CustomerName:    "Marie",
		Items:           "2 robes",
		Quartier:        "Akwa",
		AmountDue:       15000,
		SourceMessageID: "msg-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Status != StatusPending || order.AmountPaid != 0 {
		t.Fatalf("order = %+v", order)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresLatestByPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs("612345678").
		WillReturnRows(orderRows(id, "612345678", 10000, 4000, StatusPending))

	order, err := repo.LatestByPhone(context.Background(), "612345678")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if order.ID != id || order.AmountPaid != 4000 {
		t.Fatalf("order = %+v", order)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	// An empty row set surfaces pgx.ErrNoRows through QueryRow.
	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPostgresApplyUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	paid := 10000.0
	delivered := StatusDelivered

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET").
		WithArgs(id, "delivered", 10000.0).
		WillReturnRows(orderRows(id, "612345678", 10000, 10000, StatusDelivered))
	mock.ExpectExec("INSERT INTO order_history").
		WithArgs(pgxmock.AnyArg(), id, "marked_delivered", "Livré 612345678").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	order, err := repo.ApplyUpdate(context.Background(), id, Update{Status: &delivered, AmountPaid: &paid}, "marked_delivered", "Livré 612345678")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.Status != StatusDelivered || order.AmountPaid != 10000 {
		t.Fatalf("order = %+v", order)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	rows := orderRows(uuid.New(), "612345678", 5000, 0, StatusPending)
	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs("612345678", "pending", 20).
		WillReturnRows(rows)

	list, err := repo.ListRecent(context.Background(), ListFilter{Phone: "612345678", Status: StatusPending, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Phone != "612345678" {
		t.Fatalf("list = %+v", list)
	}
}
