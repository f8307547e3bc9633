package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a product record owned by a single principal. Quantity is
// the on-hand stock; it is only mutated by explicit owner edits or by the
// order-placement reservation protocol.
type InventoryItem struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	ImageURL     string          `json:"imageUrl"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// DateRange restricts a query to order creation time. Nil bounds are open;
// both bounds are inclusive.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}
