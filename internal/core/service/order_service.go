package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockenza/stockenza/internal/core/domain"
	"github.com/stockenza/stockenza/internal/port"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateRequest  = errors.New("duplicate request")
)

// rollbackAttempts bounds the retry of a compensating increment before the
// inconsistency is handed over to manual reconciliation.
const rollbackAttempts = 3

type OrderService struct {
	inventory port.InventoryRepository
	orders    port.OrderRepository
	cache     port.CacheRepository
}

func NewOrderService(inventory port.InventoryRepository, orders port.OrderRepository, cache port.CacheRepository) *OrderService {
	return &OrderService{
		inventory: inventory,
		orders:    orders,
		cache:     cache,
	}
}

type resolvedLine struct {
	item *domain.InventoryItem
	qty  int
}

// PlaceOrder validates the requested line items against the principal's
// inventory, computes the authoritative total, reserves stock per line with a
// conditional decrement, and commits exactly one order, or rolls back every
// decrement that did succeed and reports why. requestID is optional; when
// present it guards against duplicate submissions of the same order.
func (s *OrderService) PlaceOrder(ctx context.Context, principal, requestID string, items []domain.OrderItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no order items provided: %w", ErrInvalidRequest)
	}
	for _, it := range items {
		if it.ProductID == "" {
			return nil, fmt.Errorf("each order item needs a valid productId: %w", ErrInvalidRequest)
		}
		if it.Qty <= 0 {
			return nil, fmt.Errorf("invalid qty %d for product %s: %w", it.Qty, it.ProductID, ErrInvalidRequest)
		}
	}

	idemKey := ""
	if requestID != "" {
		idemKey = fmt.Sprintf("order:%s:%s", principal, requestID)
		ok, err := s.cache.SetIdempotency(ctx, idemKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	// Read phase: resolve every line before touching any stock. The quantity
	// check here is optimistic; the conditional decrement below is the guard
	// that actually holds under concurrency.
	resolved := make([]resolvedLine, 0, len(items))
	for _, it := range items {
		item, err := s.inventory.FindByID(ctx, it.ProductID)
		if err != nil {
			s.release(ctx, idemKey)
			return nil, fmt.Errorf("lookup product %s: %w", it.ProductID, err)
		}
		if item == nil {
			s.release(ctx, idemKey)
			return nil, fmt.Errorf("product not found: %s: %w", it.ProductID, ErrNotFound)
		}
		if item.OwnerID != principal {
			s.release(ctx, idemKey)
			return nil, fmt.Errorf("not authorised to sell product %q: %w", item.Name, ErrForbidden)
		}
		if item.Quantity < it.Qty {
			s.release(ctx, idemKey)
			return nil, fmt.Errorf("insufficient stock for %q: available %d, requested %d: %w",
				item.Name, item.Quantity, it.Qty, ErrInsufficientStock)
		}
		resolved = append(resolved, resolvedLine{item: item, qty: it.Qty})
	}

	// The client-supplied total, if any, never reaches this point; the order
	// is always priced from the items just resolved.
	total := decimal.Zero
	for _, line := range resolved {
		total = total.Add(line.item.SellingPrice.Mul(decimal.NewFromInt(int64(line.qty))))
	}
	total = total.Round(2)

	// Reservation phase: one conditional decrement per line. If two requests
	// race for the same limited stock, only one decrement applies; the loser
	// observes a failed guard here even though its read phase passed.
	applied := make([]domain.OrderItem, 0, len(items))
	for i, it := range items {
		ok, err := s.inventory.DecrementStock(ctx, it.ProductID, it.Qty)
		if err != nil {
			s.rollback(ctx, applied)
			s.release(ctx, idemKey)
			return nil, fmt.Errorf("stock decrement failed for product %s: %w", it.ProductID, err)
		}
		if !ok {
			s.rollback(ctx, applied)
			s.release(ctx, idemKey)
			return nil, fmt.Errorf("insufficient stock for %q: it was just purchased by someone else: %w",
				resolved[i].item.Name, ErrInsufficientStock)
		}
		applied = append(applied, it)
	}

	order := &domain.Order{
		ID:          uuid.New().String(),
		OwnerID:     principal,
		Items:       items,
		TotalAmount: total,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		s.rollback(ctx, applied)
		s.release(ctx, idemKey)
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return order, nil
}

// rollback undoes every decrement that succeeded in this invocation. It runs
// on a cancellation-proof context: the caller may have disconnected, but the
// compensating writes must still land. A compensating increment that keeps
// failing leaves stock under-counted with no order to justify it; that is
// logged as a critical inconsistency for manual reconciliation.
func (s *OrderService) rollback(ctx context.Context, applied []domain.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range applied {
		var err error
		for attempt := 0; attempt < rollbackAttempts; attempt++ {
			if err = s.inventory.IncrementStock(ctx, it.ProductID, it.Qty); err == nil {
				break
			}
		}
		if err != nil {
			log.Printf("CRITICAL: rollback failed for product %s (qty %d): %v; stock is under-counted, reconcile manually",
				it.ProductID, it.Qty, err)
		}
	}
}

// release frees an idempotency key after a failed placement so the client may
// retry with the same request id.
func (s *OrderService) release(ctx context.Context, idemKey string) {
	if idemKey == "" {
		return
	}
	if err := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), idemKey); err != nil {
		log.Printf("failed to release idempotency key %s: %v", idemKey, err)
	}
}

// ListOrders returns the principal's orders, newest first, optionally
// restricted to a creation-time range.
func (s *OrderService) ListOrders(ctx context.Context, principal string, rng domain.DateRange) ([]domain.Order, error) {
	orders, err := s.orders.ListByOwner(ctx, principal, rng)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
