package models

// OrderEvent is published to Kafka on order/payment lifecycle changes.
type OrderEvent struct {
	OrderID   int           `json:"order_id"`
	UserID    int           `json:"user_id,omitempty"`
	PaymentID string        `json:"payment_id"`
	Total     string        `json:"total"`
	Status    PaymentStatus `json:"status"`
	EventType string        `json:"event_type"` // order_created, payment_updated
}
