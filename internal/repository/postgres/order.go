package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// OrderRepository persists orders in PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a Postgres-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const insertOrderQuery = `
	INSERT INTO orders (
		id, user_id, status, subtotal_amount, total_amount, currency,
		first_name, last_name, email, phone, address, city, zip_code,
		created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const insertOrderItemQuery = `
	INSERT INTO order_items (id, order_id, product_id, title, unit_price, quantity)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Create stores the order and its items in a single transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderQuery,
		order.ID,
		order.UserID,
		order.Status,
		order.SubtotalAmount,
		order.TotalAmount,
		order.Currency,
		order.Shipping.FirstName,
		order.Shipping.LastName,
		order.Shipping.Email,
		order.Shipping.Phone,
		order.Shipping.Address,
		order.Shipping.City,
		order.Shipping.ZipCode,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, insertOrderItemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Title,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const listOrdersQuery = `
	SELECT id, user_id, status, subtotal_amount, total_amount, currency,
		first_name, last_name, email, phone, address, city, zip_code,
		created_at
	FROM orders
	WHERE user_id = $1
	ORDER BY created_at DESC`

const listOrderItemsQuery = `
	SELECT id, order_id, product_id, title, unit_price, quantity
	FROM order_items
	WHERE order_id = $1`

// ListByUser returns the user's orders, newest first, items included.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.SubtotalAmount, &o.TotalAmount, &o.Currency,
			&o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.Email, &o.Shipping.Phone,
			&o.Shipping.Address, &o.Shipping.City, &o.Shipping.ZipCode,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		items, err := r.listItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, listOrderItemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}
