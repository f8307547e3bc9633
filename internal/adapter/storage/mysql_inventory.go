package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stockenza/stockenza/internal/core/domain"
)

type MySQLInventory struct {
	db *sql.DB
}

func NewMySQLInventory(db *sql.DB) *MySQLInventory {
	return &MySQLInventory{db: db}
}

func (m *MySQLInventory) Insert(ctx context.Context, item *domain.InventoryItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory_items
			(id, owner_id, name, sku, category, quantity, cost_price, selling_price, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, item.SKU, item.Category, item.Quantity,
		item.CostPrice, item.SellingPrice, item.ImageURL, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

func (m *MySQLInventory) FindByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := m.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, sku, category, quantity, cost_price, selling_price, image_url, created_at, updated_at
		FROM inventory_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.OwnerID, &item.Name, &item.SKU, &item.Category, &item.Quantity,
		&item.CostPrice, &item.SellingPrice, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory item: %w", err)
	}

	return &item, nil
}

// Update writes the descriptive columns only. Quantity is never part of the
// SET clause: writing it back from a read snapshot would silently undo any
// decrement that landed between the read and this write.
func (m *MySQLInventory) Update(ctx context.Context, item *domain.InventoryItem) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET name = ?, sku = ?, category = ?, cost_price = ?, selling_price = ?, image_url = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.SKU, item.Category,
		item.CostPrice, item.SellingPrice, item.ImageURL, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	return nil
}

func (m *MySQLInventory) SetQuantity(ctx context.Context, id string, qty int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = ?, updated_at = NOW()
		WHERE id = ?`,
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("set stock quantity: %w", err)
	}
	return nil
}

func (m *MySQLInventory) Delete(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return nil
}

func (m *MySQLInventory) ListByOwner(ctx context.Context, ownerID string) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, owner_id, name, sku, category, quantity, cost_price, selling_price, image_url, created_at, updated_at
		FROM inventory_items WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &item.SKU, &item.Category, &item.Quantity,
			&item.CostPrice, &item.SellingPrice, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DecrementStock applies the conditional decrement that guards against
// oversell: the quantity predicate is evaluated by the database at the
// instant of the update, so two racing orders cannot both pass it once the
// remaining stock covers only one of them. Zero rows affected is the
// authoritative "guard failed" signal.
func (m *MySQLInventory) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE id = ? AND quantity >= ?`,
		qty, id, qty,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock: rows affected: %w", err)
	}
	return rows > 0, nil
}

func (m *MySQLInventory) IncrementStock(ctx context.Context, id string, qty int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE id = ?`,
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}
