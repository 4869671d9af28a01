package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusRejected  OrderStatus = "rejected"
)

// OrderLineRequest is one requested line of an incoming order. It is
// transient caller input and is never persisted on its own.
type OrderLineRequest struct {
	ItemID   string
	Quantity int
}

type OrderLine struct {
	ItemID    string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Order struct {
	ID            string
	OrderNumber   string
	CustomerEmail string
	Status        OrderStatus
	Total         decimal.Decimal
	Lines         []OrderLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrderNumber returns a short human-facing order number like ORD-3FA85F21.
func NewOrderNumber() string {
	u := uuid.New()
	return fmt.Sprintf("ORD-%X", u[:4])
}
