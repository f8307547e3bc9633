package port

import (
	"context"

	"github.com/stockenza/stockenza/internal/core/domain"
)

type InventoryRepository interface {
	// Insert persists a new inventory item.
	Insert(ctx context.Context, item *domain.InventoryItem) error

	// FindByID retrieves an item by id; returns (nil, nil) when absent.
	FindByID(ctx context.Context, id string) (*domain.InventoryItem, error)

	// Update overwrites the descriptive attributes of an existing item.
	// Quantity is deliberately excluded: stock changes only through
	// SetQuantity, DecrementStock, or IncrementStock, so a partial edit
	// never rewrites a concurrent sale with a stale read.
	Update(ctx context.Context, item *domain.InventoryItem) error

	// SetQuantity overwrites stock with an explicitly edited value.
	SetQuantity(ctx context.Context, id string, qty int) error

	// Delete removes an item. Orders referencing it keep their weak reference.
	Delete(ctx context.Context, id string) error

	// ListByOwner returns all items owned by a principal, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.InventoryItem, error)

	// DecrementStock atomically decreases quantity by qty only while the
	// stored quantity is still >= qty; returns false when the guard failed.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)

	// IncrementStock restores stock (compensation for a failed reservation).
	IncrementStock(ctx context.Context, id string, qty int) error
}

type OrderRepository interface {
	// Insert persists a new order with its line items, all-or-nothing.
	Insert(ctx context.Context, order *domain.Order) error

	// ListByOwner returns a principal's orders, newest first, optionally
	// restricted to a creation-time range.
	ListByOwner(ctx context.Context, ownerID string, rng domain.DateRange) ([]domain.Order, error)
}
