package models

import "github.com/shopspring/decimal"

// Item is a catalog entry. Prices are exact decimals with two fractional
// digits, never floats.
type Item struct {
	ID    int             `json:"item_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
