package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order owns its details: they are created together and cascade-deleted
// together.
type Order struct {
	ID      int           `json:"order_id"`
	UserID  int           `json:"user_id"`
	Date    time.Time     `json:"date"`
	Details []OrderDetail `json:"details,omitempty"`
}

type OrderDetail struct {
	ID       int  `json:"detail_id"`
	OrderID  int  `json:"-"`
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// Total is the sum of item price times quantity over all details. It is
// recomputed on every call so it can never drift from the detail rows.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.Details {
		total = total.Add(d.Item.Price.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}
	return total
}

// CartItem is one raw cart entry. Validation is done exhaustively by the
// purchase handler, not field by field at bind time, so the caller sees every
// problem at once.
type CartItem struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

type PurchaseRequest struct {
	Items []CartItem `json:"items" binding:"required"`
}

type PurchaseResponse struct {
	CheckoutURL string `json:"checkout_url"`
}
