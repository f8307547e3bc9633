package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a single line of an order: a weak reference to an inventory
// item plus a positive quantity. The referenced item may be deleted later;
// consumers must tolerate a dangling ProductID.
type OrderItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Order is created whole by order placement and is immutable afterwards.
// TotalAmount is the server-computed sum of qty times selling price at the
// moment of creation; it is never revised when prices change.
type Order struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}
