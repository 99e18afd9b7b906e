package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// KVStore is the persistent byte store backing carts and sessions. It has
// overwrite-on-write slot semantics: Set replaces the whole value, there is
// no transaction or versioning. Get returns an error wrapping
// apperrors.ErrNotFound when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// OrderRepository stores completed orders.
type OrderRepository interface {
	// Create inserts an order and its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}
