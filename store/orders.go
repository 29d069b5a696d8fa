package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"shop-svc/models"
)

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// OrderLine pairs an already-resolved item with a quantity.
type OrderLine struct {
	Item     models.Item
	Quantity int
}

// OrderFilter narrows and orders order listings.
type OrderFilter struct {
	DateLT   *time.Time
	DateGT   *time.Time
	Ordering string // date, -date
}

var orderOrderings = map[string]string{
	"date":  "date ASC",
	"-date": "date DESC",
}

// DetailFilter narrows and orders detail listings.
type DetailFilter struct {
	QuantityLT *int
	QuantityGT *int
	Ordering   string // quantity, -quantity
}

var detailOrderings = map[string]string{
	"quantity":  "d.quantity ASC",
	"-quantity": "d.quantity DESC",
}

// Create persists an order together with one detail row per line, in a single
// transaction. A failure partway through leaves nothing behind.
func (s *OrderStore) Create(ctx context.Context, userID int, lines []OrderLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, models.ValidationErrors{"order must contain at least one item"}
	}
	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, models.ValidationErrors{fmt.Sprintf("invalid quantity for item %d: %d", line.Item.ID, line.Quantity)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order := &models.Order{UserID: userID}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (user_id) VALUES ($1) RETURNING id, date",
		userID,
	).Scan(&order.ID, &order.Date)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		detail := models.OrderDetail{OrderID: order.ID, Item: line.Item, Quantity: line.Quantity}
		err = tx.QueryRowContext(ctx,
			"INSERT INTO order_details (order_id, item_id, quantity) VALUES ($1, $2, $3) RETURNING id",
			order.ID, line.Item.ID, line.Quantity,
		).Scan(&detail.ID)
		if err != nil {
			return nil, err
		}
		order.Details = append(order.Details, detail)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete is the compensating rollback of the purchase flow. Details and the
// payment row, if any, go with the order via cascade.
func (s *OrderStore) Delete(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	return err
}

func (s *OrderStore) Get(ctx context.Context, id int) (*models.Order, error) {
	var order models.Order
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, date FROM orders WHERE id = $1", id,
	).Scan(&order.ID, &order.UserID, &order.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Details, err = s.ListDetails(ctx, order.ID, DetailFilter{})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID int, filter OrderFilter) ([]models.Order, error) {
	query := "SELECT id, user_id, date FROM orders WHERE user_id = $1"
	args := []interface{}{userID}
	argPos := 2

	if filter.DateLT != nil {
		query += " AND date < $" + strconv.Itoa(argPos)
		args = append(args, *filter.DateLT)
		argPos++
	}
	if filter.DateGT != nil {
		query += " AND date > $" + strconv.Itoa(argPos)
		args = append(args, *filter.DateGT)
		argPos++
	}

	query += " ORDER BY " + orderClause(filter.Ordering, orderOrderings, "id ASC")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Date); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Details, err = s.ListDetails(ctx, orders[i].ID, DetailFilter{})
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *OrderStore) ListDetails(ctx context.Context, orderID int, filter DetailFilter) ([]models.OrderDetail, error) {
	query := `SELECT d.id, d.order_id, d.quantity, i.id, i.name, i.price
		FROM order_details d JOIN items i ON i.id = d.item_id
		WHERE d.order_id = $1`
	args := []interface{}{orderID}
	argPos := 2

	if filter.QuantityLT != nil {
		query += " AND d.quantity < $" + strconv.Itoa(argPos)
		args = append(args, *filter.QuantityLT)
		argPos++
	}
	if filter.QuantityGT != nil {
		query += " AND d.quantity > $" + strconv.Itoa(argPos)
		args = append(args, *filter.QuantityGT)
		argPos++
	}

	query += " ORDER BY " + orderClause(filter.Ordering, detailOrderings, "d.id ASC")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []models.OrderDetail
	for rows.Next() {
		var d models.OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.Quantity, &d.Item.ID, &d.Item.Name, &d.Item.Price); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
