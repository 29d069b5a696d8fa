package worker

import (
	"context"
	"testing"
	"time"

	"shop-svc/gateway"
	"shop-svc/store"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"
)

type fakeGateway struct {
	getPaymentFunc func(ctx context.Context, id string) (*gateway.ProviderPayment, error)
}

func (f *fakeGateway) CreatePayment(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.ProviderPayment, error) {
	return nil, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, id string) (*gateway.ProviderPayment, error) {
	return f.getPaymentFunc(ctx, id)
}

func TestSweep_UpdatesStalePayments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	gw := &fakeGateway{
		getPaymentFunc: func(ctx context.Context, id string) (*gateway.ProviderPayment, error) {
			switch id {
			case "tr_aaa":
				return &gateway.ProviderPayment{ID: id, Status: "paid", Metadata: 1}, nil
			default:
				return &gateway.ProviderPayment{ID: id, Status: "expired", Metadata: 2}, nil
			}
		},
	}

	mock.ExpectQuery("SELECT p.id, p.order_id, p.status, p.checkout_url").
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "checkout_url"}).
			AddRow("tr_aaa", 1, "open", "").
			AddRow("tr_bbb", 2, "pending", ""))
	mock.ExpectExec("UPDATE payments SET status =").
		WithArgs("tr_aaa", "paid").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments SET status =").
		WithArgs("tr_bbb", "expired").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := NewReconciliationWorker(store.NewPaymentStore(db), gw, time.Minute, time.Hour, zaptest.NewLogger(t))
	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestSweep_SkipsFailedPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	gw := &fakeGateway{
		getPaymentFunc: func(ctx context.Context, id string) (*gateway.ProviderPayment, error) {
			if id == "tr_aaa" {
				return nil, &gateway.Error{StatusCode: 503, Detail: "service unavailable"}
			}
			return &gateway.ProviderPayment{ID: id, Status: "paid", Metadata: 2}, nil
		},
	}

	// The first payment fails at the provider; the second is still updated.
	mock.ExpectQuery("SELECT p.id, p.order_id, p.status, p.checkout_url").
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "checkout_url"}).
			AddRow("tr_aaa", 1, "open", "").
			AddRow("tr_bbb", 2, "open", ""))
	mock.ExpectExec("UPDATE payments SET status =").
		WithArgs("tr_bbb", "paid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := NewReconciliationWorker(store.NewPaymentStore(db), gw, time.Minute, time.Hour, zaptest.NewLogger(t))
	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestSweep_NoStalePayments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT p.id, p.order_id, p.status, p.checkout_url").
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "checkout_url"}))

	w := NewReconciliationWorker(store.NewPaymentStore(db), &fakeGateway{}, time.Minute, time.Hour, zaptest.NewLogger(t))
	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
