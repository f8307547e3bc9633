package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/stockenza/stockenza/internal/core/domain"
)

type MySQLOrders struct {
	db *sql.DB
}

func NewMySQLOrders(db *sql.DB) *MySQLOrders {
	return &MySQLOrders{db: db}
}

func (m *MySQLOrders) Insert(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, owner_id, total_amount, created_at)
		VALUES (?, ?, ?, ?)`,
		order.ID, order.OwnerID, order.TotalAmount, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, qty)
			VALUES (?, ?, ?)`,
			order.ID, item.ProductID, item.Qty,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLOrders) ListByOwner(ctx context.Context, ownerID string, rng domain.DateRange) ([]domain.Order, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, owner_id, total_amount, created_at
		FROM orders WHERE owner_id = ?`)
	args := []any{ownerID}
	if rng.From != nil {
		query.WriteString(` AND created_at >= ?`)
		args = append(args, *rng.From)
	}
	if rng.To != nil {
		query.WriteString(` AND created_at <= ?`)
		args = append(args, *rng.To)
	}
	query.WriteString(` ORDER BY created_at DESC`)

	rows, err := m.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	index := make(map[string]int)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.OwnerID, &order.TotalAmount, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Items = make([]domain.OrderItem, 0, 1)
		index[order.ID] = len(orders)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	if err := m.attachItems(ctx, ownerID, rng, orders, index); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *MySQLOrders) attachItems(ctx context.Context, ownerID string, rng domain.DateRange, orders []domain.Order, index map[string]int) error {
	query := strings.Builder{}
	query.WriteString(`
		SELECT oi.order_id, oi.product_id, oi.qty
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.owner_id = ?`)
	args := []any{ownerID}
	if rng.From != nil {
		query.WriteString(` AND o.created_at >= ?`)
		args = append(args, *rng.From)
	}
	if rng.To != nil {
		query.WriteString(` AND o.created_at <= ?`)
		args = append(args, *rng.To)
	}
	query.WriteString(` ORDER BY oi.id`)

	rows, err := m.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Qty); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}
