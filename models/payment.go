package models

import "fmt"

// PaymentStatus is the closed set of payment states. The values double as
// the provider's wire-format strings; ParsePaymentStatus is the only way in
// from the wire so unknown provider states cannot leak into the database.
type PaymentStatus string

const (
	PaymentStatusOpen       PaymentStatus = "open"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusExpired    PaymentStatus = "expired"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusPaid       PaymentStatus = "paid"
)

var wireStatuses = map[string]PaymentStatus{
	"open":       PaymentStatusOpen,
	"canceled":   PaymentStatusCanceled,
	"pending":    PaymentStatusPending,
	"authorized": PaymentStatusAuthorized,
	"expired":    PaymentStatusExpired,
	"failed":     PaymentStatusFailed,
	"paid":       PaymentStatusPaid,
}

// ParsePaymentStatus maps a provider wire string to a local status.
func ParsePaymentStatus(wire string) (PaymentStatus, error) {
	status, ok := wireStatuses[wire]
	if !ok {
		return "", fmt.Errorf("unknown payment status %q", wire)
	}
	return status, nil
}

// Terminal reports whether the status can no longer change upstream.
// Non-terminal payments are the ones the reconciliation sweep revisits.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCanceled, PaymentStatusExpired, PaymentStatusFailed, PaymentStatusPaid:
		return true
	}
	return false
}

// Payment maps a provider-issued payment id to a local order. The id is the
// provider's, not a locally generated key; at most one payment exists per
// order.
type Payment struct {
	ID          string        `json:"id"`
	OrderID     int           `json:"order_id"`
	Status      PaymentStatus `json:"status"`
	CheckoutURL string        `json:"checkout_url"`
}
