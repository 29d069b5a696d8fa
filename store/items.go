package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"shop-svc/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// ItemFilter narrows and orders item listings.
type ItemFilter struct {
	NameContains string
	PriceLT      *decimal.Decimal
	PriceGT      *decimal.Decimal
	Ordering     string // name, -name, price, -price
}

var itemOrderings = map[string]string{
	"name":   "name ASC",
	"-name":  "name DESC",
	"price":  "price ASC",
	"-price": "price DESC",
}

func (s *ItemStore) Get(ctx context.Context, id int) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price FROM items WHERE id = $1", id,
	).Scan(&item.ID, &item.Name, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByIDs fetches every listed item in one round trip. Missing ids are
// simply absent from the result; the caller decides what that means.
func (s *ItemStore) GetByIDs(ctx context.Context, ids []int) (map[int]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price FROM items WHERE id = ANY($1)", pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int]models.Item, len(ids))
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Price); err != nil {
			return nil, err
		}
		items[item.ID] = item
	}
	return items, rows.Err()
}

func (s *ItemStore) List(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	query := "SELECT id, name, price FROM items WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.NameContains != "" {
		query += " AND name ILIKE '%' || $" + strconv.Itoa(argPos) + " || '%'"
		args = append(args, filter.NameContains)
		argPos++
	}
	if filter.PriceLT != nil {
		query += " AND price < $" + strconv.Itoa(argPos)
		args = append(args, *filter.PriceLT)
		argPos++
	}
	if filter.PriceGT != nil {
		query += " AND price > $" + strconv.Itoa(argPos)
		args = append(args, *filter.PriceGT)
		argPos++
	}

	query += " ORDER BY " + orderClause(filter.Ordering, itemOrderings, "id ASC")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
