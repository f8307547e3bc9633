package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockenza/stockenza/internal/core/domain"
	"github.com/stockenza/stockenza/internal/port"
)

type InventoryService struct {
	inventory port.InventoryRepository
}

func NewInventoryService(inventory port.InventoryRepository) *InventoryService {
	return &InventoryService{inventory: inventory}
}

// ItemChanges carries a partial update; nil fields are left untouched.
type ItemChanges struct {
	Name         *string
	SKU          *string
	Category     *string
	Quantity     *int
	CostPrice    *decimal.Decimal
	SellingPrice *decimal.Decimal
	ImageURL     *string
}

func (s *InventoryService) List(ctx context.Context, principal string) ([]domain.InventoryItem, error) {
	items, err := s.inventory.ListByOwner(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (s *InventoryService) Create(ctx context.Context, principal string, in domain.InventoryItem) (*domain.InventoryItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateItem(&in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &domain.InventoryItem{
		ID:           uuid.New().String(),
		OwnerID:      principal,
		Name:         in.Name,
		SKU:          in.SKU,
		Category:     in.Category,
		Quantity:     in.Quantity,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		ImageURL:     in.ImageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.inventory.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

func (s *InventoryService) Update(ctx context.Context, principal, id string, changes ItemChanges) (*domain.InventoryItem, error) {
	item, err := s.owned(ctx, principal, id, "update")
	if err != nil {
		return nil, err
	}

	if changes.Name != nil {
		item.Name = strings.TrimSpace(*changes.Name)
	}
	if changes.SKU != nil {
		item.SKU = strings.TrimSpace(*changes.SKU)
	}
	if changes.Category != nil {
		item.Category = strings.TrimSpace(*changes.Category)
	}
	if changes.Quantity != nil {
		item.Quantity = *changes.Quantity
	}
	if changes.CostPrice != nil {
		item.CostPrice = *changes.CostPrice
	}
	if changes.SellingPrice != nil {
		item.SellingPrice = *changes.SellingPrice
	}
	if changes.ImageURL != nil {
		item.ImageURL = *changes.ImageURL
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.inventory.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	// Quantity is persisted only when the client actually edited it. Update
	// above excludes the column, so a rename racing an order placement can
	// never restore stock that the placement already sold.
	if changes.Quantity != nil {
		if err := s.inventory.SetQuantity(ctx, id, *changes.Quantity); err != nil {
			return nil, fmt.Errorf("update item quantity: %w", err)
		}
	}
	return item, nil
}

func (s *InventoryService) Delete(ctx context.Context, principal, id string) error {
	if _, err := s.owned(ctx, principal, id, "delete"); err != nil {
		return err
	}
	if err := s.inventory.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// owned fetches an item and enforces the ownership boundary.
func (s *InventoryService) owned(ctx context.Context, principal, id, action string) (*domain.InventoryItem, error) {
	if id == "" {
		return nil, fmt.Errorf("missing item id: %w", ErrInvalidRequest)
	}
	item, err := s.inventory.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup item %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item not found: %s: %w", id, ErrNotFound)
	}
	if item.OwnerID != principal {
		return nil, fmt.Errorf("not authorised to %s item %q: %w", action, item.Name, ErrForbidden)
	}
	return item, nil
}

func validateItem(item *domain.InventoryItem) error {
	if item.Name == "" {
		return fmt.Errorf("item name must not be empty: %w", ErrInvalidRequest)
	}
	if item.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative: %w", ErrInvalidRequest)
	}
	if item.CostPrice.IsNegative() || item.SellingPrice.IsNegative() {
		return fmt.Errorf("prices must not be negative: %w", ErrInvalidRequest)
	}
	return nil
}
