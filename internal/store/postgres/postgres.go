// Package postgres implements the customer store and inventory on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/order-admission-simulator/internal/admission"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

// Store is both an admission.CustomerStore and an admission.Inventory.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ admission.CustomerStore = (*Store)(nil)
	_ admission.Inventory     = (*Store)(nil)
)

// New connects to the database and pings it.
func New(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			available BOOLEAN,
			count BIGINT,
			price BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			seq BIGSERIAL,
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			contact_number VARCHAR(64) NOT NULL DEFAULT '',
			order_id VARCHAR(64) NOT NULL DEFAULT '',
			product_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			order_created_at TIMESTAMP WITH TIME ZONE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name)`,
	}
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces a product row.
func (s *Store) Upsert(ctx context.Context, p model.Product) error {
	query := `
		INSERT INTO products (id, available, count, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET available = EXCLUDED.available, count = EXCLUDED.count, price = EXCLUDED.price
	`
	_, err := s.pool.Exec(ctx, query, p.ID, p.Available, p.Count, p.Price)
	return err
}

// Get returns the product row.
func (s *Store) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT id, available, count, price FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, err
	}
	return p, true, nil
}

// ApplyDecrement locks the product row, checks it and writes the new count in
// one transaction.
func (s *Store) ApplyDecrement(ctx context.Context, id int64, qty int64) (model.Product, error) {
	var out model.Product
	err := s.transact(ctx, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, `SELECT id, available, count, price FROM products WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return admission.ErrProductNotFound
		}
		if err != nil {
			return err
		}
		out = p
		if !admission.CanFulfill(p, qty) {
			return admission.ErrInsufficientStock
		}
		admission.Decrement(&out, qty)
		_, err = tx.Exec(ctx, `UPDATE products SET count = $1, available = $2 WHERE id = $3`, out.Count, out.Available, id)
		return err
	})
	return out, err
}

func (s *Store) transact(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Available, &p.Count, &p.Price)
	return p, err
}

// Save inserts or replaces the customer row.
func (s *Store) Save(ctx context.Context, c model.Customer) error {
	query := `
		INSERT INTO customers (id, name, address, contact_number, order_id, product_id, quantity, order_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, contact_number = EXCLUDED.contact_number,
			order_id = EXCLUDED.order_id, product_id = EXCLUDED.product_id,
			quantity = EXCLUDED.quantity, order_created_at = EXCLUDED.order_created_at
	`
	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Name, c.Address, c.ContactNumber,
		c.Order.ID, c.Order.ProductID, c.Order.Quantity, c.Order.CreatedAt)
	return err
}

const customerColumns = `id, name, address, contact_number, order_id, product_id, quantity, order_created_at`

// FindByID returns the customer row.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Customer, bool, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Customer{}, false, nil
	}
	if err != nil {
		return model.Customer{}, false, err
	}
	return c, true, nil
}

// FindByName returns customers named name in insertion order.
func (s *Store) FindByName(ctx context.Context, name string) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers WHERE name = $1 ORDER BY seq`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var (
		c         model.Customer
		createdAt *time.Time
	)
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.ContactNumber,
		&c.Order.ID, &c.Order.ProductID, &c.Order.Quantity, &createdAt)
	if createdAt != nil {
		c.Order.CreatedAt = createdAt.UTC()
	}
	return c, err
}
