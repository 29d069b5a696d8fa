package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shop-svc/gateway"
	"shop-svc/models"
)

type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, p *models.Payment) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payments (id, order_id, status, checkout_url) VALUES ($1, $2, $3, $4)",
		p.ID, p.OrderID, p.Status, p.CheckoutURL,
	)
	return err
}

func (s *PaymentStore) Get(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.QueryRowContext(ctx,
		"SELECT id, order_id, status, checkout_url FROM payments WHERE id = $1", id,
	).Scan(&p.ID, &p.OrderID, &p.Status, &p.CheckoutURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaymentStore) GetByOrder(ctx context.Context, orderID int) (*models.Payment, error) {
	var p models.Payment
	err := s.db.QueryRowContext(ctx,
		"SELECT id, order_id, status, checkout_url FROM payments WHERE order_id = $1", orderID,
	).Scan(&p.ID, &p.OrderID, &p.Status, &p.CheckoutURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaymentStore) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $2 WHERE id = $1", id, status,
	)
	return err
}

// FindStale returns non-terminal payments whose order is older than the
// threshold. These are payments the provider may have resolved without a
// webhook landing here.
func (s *PaymentStore) FindStale(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.order_id, p.status, p.checkout_url
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE p.status IN ('open', 'pending', 'authorized')
		AND o.date < $1
		LIMIT $2`,
		time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Status, &p.CheckoutURL); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Reconcile overwrites the local status with the provider's truth. The
// provider payment must reference the linked order through its metadata;
// a mismatch aborts with ErrMetadataMismatch before anything is written.
// Gateway failures propagate so the caller can decide to retry or drop.
func (s *PaymentStore) Reconcile(ctx context.Context, gw gateway.Client, p *models.Payment) error {
	provider, err := gw.GetPayment(ctx, p.ID)
	if err != nil {
		return err
	}

	if provider.Metadata != p.OrderID {
		return fmt.Errorf("payment %s: got order %d, want %d: %w",
			p.ID, provider.Metadata, p.OrderID, ErrMetadataMismatch)
	}

	status, err := models.ParsePaymentStatus(provider.Status)
	if err != nil {
		return fmt.Errorf("payment %s: %w", p.ID, err)
	}

	if err := s.UpdateStatus(ctx, p.ID, status); err != nil {
		return err
	}
	p.Status = status
	return nil
}
