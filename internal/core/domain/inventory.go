package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ItemID    string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockUpdate is one conditional decrement derived from an attempt's read
// snapshot. It takes effect only if the row's version still equals
// ExpectedVersion at write time; otherwise it affects zero rows.
type StockUpdate struct {
	ItemID          string
	NewQuantity     int
	NewVersion      int
	ExpectedVersion int
}
