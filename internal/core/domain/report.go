package domain

import "github.com/shopspring/decimal"

// SummaryReport aggregates an owner's orders and inventory for a date window.
// TotalProfit mixes snapshot revenue (price at sale time) with the current
// cost price of each referenced item; lines whose item was deleted contribute
// zero cost. This mirrors the reporting behaviour the business signed off on.
type SummaryReport struct {
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalProfit    decimal.Decimal `json:"totalProfit"`
	InventoryValue decimal.Decimal `json:"inventoryValue"`
	OrderCount     int             `json:"orderCount"`
}

// DailyPoint is one day of revenue and profit, keyed by a YYYY-MM-DD date.
type DailyPoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// PnLRow is the per-product profit-and-loss line. Products with no sales in
// the window appear with zero stats.
type PnLRow struct {
	ProductID    string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	UnitsSold    int             `json:"unitsSold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	Margin       decimal.Decimal `json:"margin"`
}
