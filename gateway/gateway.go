package gateway

import (
	"context"
	"fmt"
)

// Client is the boundary to the external payment provider. The purchase flow
// and reconciliation only depend on this interface so tests can substitute a
// fake.
type Client interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*ProviderPayment, error)
	GetPayment(ctx context.Context, id string) (*ProviderPayment, error)
}

// CreatePaymentRequest mirrors the provider's create-payment body. Metadata
// carries the local order id and must round-trip unchanged.
type CreatePaymentRequest struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
	RedirectURL string `json:"redirectUrl"`
	Metadata    int    `json:"metadata"`
	WebhookURL  string `json:"webhookUrl,omitempty"`
	Method      string `json:"method,omitempty"`
}

type Amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// ProviderPayment is the provider's view of a payment.
type ProviderPayment struct {
	ID          string
	Status      string
	CheckoutURL string
	Metadata    int
}

// Error covers both transport failures and provider rejection responses;
// callers treat them uniformly as "the provider call failed".
type Error struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %v", e.Err)
	}
	return fmt.Sprintf("payment gateway: status %d: %s", e.StatusCode, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
