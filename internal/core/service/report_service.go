package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/stockenza/stockenza/internal/core/domain"
	"github.com/stockenza/stockenza/internal/port"
)

var oneHundred = decimal.NewFromInt(100)

// ReportService computes owner-scoped aggregations over orders and inventory.
// All reads, no mutation. Order lines referencing a deleted product are
// treated as "deleted product": they contribute zero cost and are skipped in
// per-product stats, never surfaced as an error.
type ReportService struct {
	inventory port.InventoryRepository
	orders    port.OrderRepository
}

func NewReportService(inventory port.InventoryRepository, orders port.OrderRepository) *ReportService {
	return &ReportService{inventory: inventory, orders: orders}
}

// Summary returns total revenue, profit, inventory value and order count for
// the window. Revenue is the snapshot total stored on each order; cost uses
// the current cost price of each referenced item, a known approximation kept
// from the original reporting behaviour.
func (s *ReportService) Summary(ctx context.Context, principal string, rng domain.DateRange) (*domain.SummaryReport, error) {
	orders, invMap, items, err := s.load(ctx, principal, rng)
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	cost := decimal.Zero
	for _, order := range orders {
		revenue = revenue.Add(order.TotalAmount)
		cost = cost.Add(orderCost(order, invMap))
	}

	inventoryValue := decimal.Zero
	for _, item := range items {
		inventoryValue = inventoryValue.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return &domain.SummaryReport{
		TotalRevenue:   revenue.Round(2),
		TotalProfit:    revenue.Sub(cost).Round(2),
		InventoryValue: inventoryValue.Round(2),
		OrderCount:     len(orders),
	}, nil
}

// DailySeries groups revenue and profit by order creation day, ascending.
func (s *ReportService) DailySeries(ctx context.Context, principal string, rng domain.DateRange) ([]domain.DailyPoint, error) {
	orders, invMap, _, err := s.load(ctx, principal, rng)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*domain.DailyPoint)
	for _, order := range orders {
		date := order.CreatedAt.UTC().Format("2006-01-02")
		point, ok := grouped[date]
		if !ok {
			point = &domain.DailyPoint{Date: date, Revenue: decimal.Zero, Profit: decimal.Zero}
			grouped[date] = point
		}
		point.Revenue = point.Revenue.Add(order.TotalAmount)
		point.Profit = point.Profit.Add(order.TotalAmount.Sub(orderCost(order, invMap)))
	}

	series := make([]domain.DailyPoint, 0, len(grouped))
	for _, point := range grouped {
		point.Revenue = point.Revenue.Round(2)
		point.Profit = point.Profit.Round(2)
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// ProductPnL returns one row per current inventory item, zero-sales items
// included, sorted by revenue descending. Revenue and cost here are both
// priced at the item's current rates.
func (s *ReportService) ProductPnL(ctx context.Context, principal string, rng domain.DateRange) ([]domain.PnLRow, error) {
	orders, invMap, items, err := s.load(ctx, principal, rng)
	if err != nil {
		return nil, err
	}

	type stats struct {
		unitsSold int
		revenue   decimal.Decimal
		cost      decimal.Decimal
	}
	perProduct := make(map[string]*stats)
	for _, order := range orders {
		for _, line := range order.Items {
			item, ok := invMap[line.ProductID]
			if !ok {
				continue // deleted product
			}
			st, ok := perProduct[line.ProductID]
			if !ok {
				st = &stats{revenue: decimal.Zero, cost: decimal.Zero}
				perProduct[line.ProductID] = st
			}
			qty := decimal.NewFromInt(int64(line.Qty))
			st.unitsSold += line.Qty
			st.revenue = st.revenue.Add(item.SellingPrice.Mul(qty))
			st.cost = st.cost.Add(item.CostPrice.Mul(qty))
		}
	}

	rows := make([]domain.PnLRow, 0, len(items))
	for _, item := range items {
		st := perProduct[item.ID]
		if st == nil {
			st = &stats{revenue: decimal.Zero, cost: decimal.Zero}
		}
		profit := st.revenue.Sub(st.cost)
		margin := decimal.Zero
		if st.revenue.IsPositive() {
			margin = profit.Div(st.revenue).Mul(oneHundred)
		}
		rows = append(rows, domain.PnLRow{
			ProductID:    item.ID,
			Name:         item.Name,
			SKU:          item.SKU,
			Category:     item.Category,
			Quantity:     item.Quantity,
			CostPrice:    item.CostPrice,
			SellingPrice: item.SellingPrice,
			UnitsSold:    st.unitsSold,
			Revenue:      st.revenue.Round(2),
			Cost:         st.cost.Round(2),
			Profit:       profit.Round(2),
			Margin:       margin.Round(2),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Revenue.GreaterThan(rows[j].Revenue) })
	return rows, nil
}

func (s *ReportService) load(ctx context.Context, principal string, rng domain.DateRange) ([]domain.Order, map[string]domain.InventoryItem, []domain.InventoryItem, error) {
	orders, err := s.orders.ListByOwner(ctx, principal, rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list orders: %w", err)
	}
	items, err := s.inventory.ListByOwner(ctx, principal)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list inventory: %w", err)
	}
	invMap := make(map[string]domain.InventoryItem, len(items))
	for _, item := range items {
		invMap[item.ID] = item
	}
	return orders, invMap, items, nil
}

func orderCost(order domain.Order, invMap map[string]domain.InventoryItem) decimal.Decimal {
	cost := decimal.Zero
	for _, line := range order.Items {
		item, ok := invMap[line.ProductID]
		if !ok {
			continue // deleted product contributes nothing
		}
		cost = cost.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return cost
}
