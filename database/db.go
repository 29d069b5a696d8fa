package database

import (
	"database/sql"
	"fmt"

	"shop-svc/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// order_details and payments cascade with their order; payments carry the
	// provider-issued id as the primary key.
	createTableQuery := `
	CREATE TABLE IF NOT EXISTS items (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		price DECIMAL(20, 2) NOT NULL CHECK (price >= 0)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS order_details (
		id SERIAL PRIMARY KEY,
		order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL REFERENCES items(id),
		quantity INTEGER NOT NULL CHECK (quantity >= 0)
	);

	CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(20) PRIMARY KEY,
		order_id INTEGER NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
		status VARCHAR(10) NOT NULL DEFAULT 'open',
		checkout_url TEXT NOT NULL
	);
	`

	if _, err := db.Exec(createTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}
