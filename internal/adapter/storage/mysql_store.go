package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockline/orderengine/internal/core/domain"
)

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (m *MySQLStore) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	var (
		item  domain.InventoryItem
		price string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, name, price, quantity_available, version, created_at, updated_at
		FROM inventory_items WHERE item_id = ?`, itemID,
	).Scan(&item.ItemID, &item.Name, &price, &item.Quantity, &item.Version, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	item.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price for %s: %w", itemID, err)
	}
	return &item, nil
}

func (m *MySQLStore) CommitOrder(ctx context.Context, order *domain.Order, updates []domain.StockUpdate) ([]int64, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_email, status, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderNumber, order.CustomerEmail, domain.OrderStatusPending,
		order.Total.StringFixed(2), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, item_id, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?)`,
			order.ID, line.ItemID, line.Quantity,
			line.UnitPrice.StringFixed(2), line.LineTotal.StringFixed(2),
		)
		if err != nil {
			return nil, fmt.Errorf("insert order line for %s: %w", line.ItemID, err)
		}
	}

	counts := make([]int64, 0, len(updates))
	for _, u := range updates {
		result, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET quantity_available = ?, version = ?, updated_at = NOW()
			WHERE item_id = ? AND version = ?`,
			u.NewQuantity, u.NewVersion, u.ItemID, u.ExpectedVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("update inventory %s: %w", u.ItemID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected for %s: %w", u.ItemID, err)
		}
		counts = append(counts, n)
		if n == 0 {
			// Lost the version race; the deferred rollback removes the
			// pending order and any decrements applied so far.
			return counts, nil
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?`,
		domain.OrderStatusConfirmed, order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return counts, nil
}

func (m *MySQLStore) UpsertItem(ctx context.Context, item domain.InventoryItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory_items (item_id, name, price, quantity_available, version)
		VALUES (?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), price = VALUES(price),
			quantity_available = VALUES(quantity_available), version = 1,
			updated_at = NOW()`,
		item.ItemID, item.Name, item.Price.StringFixed(2), item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory %s: %w", item.ItemID, err)
	}
	return nil
}

func (m *MySQLStore) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, name, price, quantity_available, version, created_at, updated_at
		FROM inventory_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var (
			item  domain.InventoryItem
			price string
		)
		if err := rows.Scan(&item.ItemID, &item.Name, &price, &item.Quantity, &item.Version, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", item.ItemID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		order domain.Order
		total string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_email, status, total_amount, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.OrderNumber, &order.CustomerEmail, &order.Status, &total, &order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total for %s: %w", orderID, err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, quantity, unit_price, line_total
		FROM order_lines WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line      domain.OrderLine
			unitPrice string
			lineTotal string
		)
		if err := rows.Scan(&line.ItemID, &line.Quantity, &unitPrice, &lineTotal); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		if line.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, fmt.Errorf("parse line total: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}
