package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkit/shopkit/pkg/pg"
)

// PGStorage is the PostgreSQL-backed order storage.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates order storage on the given pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

// Create places the order in one transaction. Product rows are locked so
// concurrent orders cannot oversell the same stock.
func (s *PGStorage) Create(ctx context.Context, username string, tenantID int64, reference string, items []ItemInput) (Order, error) {
	var order Order
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&userID)
		if pg.IsNotFoundError(err) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		if err != nil {
			return fmt.Errorf("orders: find user: %w", err)
		}

		order = Order{Reference: reference, Username: username, Items: make([]Item, 0, len(items))}
		for _, item := range items {
			var name string
			var price float64
			var available int
			err := tx.QueryRow(ctx,
				`SELECT name, price, available_quantity FROM products
				 WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
				item.ProductID, tenantID).
				Scan(&name, &price, &available)
			if pg.IsNotFoundError(err) {
				return fmt.Errorf("%w: id %d", ErrProductNotFound, item.ProductID)
			}
			if err != nil {
				return fmt.Errorf("orders: lock product: %w", err)
			}
			if available < item.Quantity {
				return fmt.Errorf("%w: product %s has %d, requested %d",
					ErrInsufficientStock, name, available, item.Quantity)
			}

			if _, err := tx.Exec(ctx,
				`UPDATE products SET available_quantity = available_quantity - $1 WHERE id = $2`,
				item.Quantity, item.ProductID); err != nil {
				return fmt.Errorf("orders: decrement stock: %w", err)
			}

			order.Items = append(order.Items, Item{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: price,
			})
			order.TotalQuantity += item.Quantity
			order.TotalAmount += price * float64(item.Quantity)
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO orders (user_id, reference, total_quantity, total_amount)
			 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			userID, reference, order.TotalQuantity, order.TotalAmount).
			Scan(&order.ID, &order.CreatedAt); err != nil {
			return fmt.Errorf("orders: insert order: %w", err)
		}

		for _, item := range order.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				 VALUES ($1, $2, $3, $4)`,
				order.ID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
				return fmt.Errorf("orders: insert item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *PGStorage) ListForUser(ctx context.Context, username string, skip, limit int) ([]Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT o.id, o.reference, o.total_quantity, o.total_amount, o.created_at
		 FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE u.username = $1 ORDER BY o.id OFFSET $2 LIMIT $3`,
		username, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o := Order{Username: username}
		if err := rows.Scan(&o.ID, &o.Reference, &o.TotalQuantity, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("orders: scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.listItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *PGStorage) listItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("orders: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
