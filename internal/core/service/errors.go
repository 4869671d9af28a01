package service

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceBusy is returned by the locking layer when another
	// invocation holds a lock on one of the requested items. Callers may
	// resubmit.
	ErrResourceBusy = errors.New("another order is currently processing these items")

	// ErrInvalidRequest marks request-shape failures caught before any
	// attempt runs.
	ErrInvalidRequest = errors.New("invalid order request")
)

// NotFoundError means a requested item identifier does not exist.
// Terminal; never retried.
type NotFoundError struct {
	ItemID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inventory item %s not found", e.ItemID)
}

// InsufficientStockError means a line requested more units than the item has
// available. Terminal; it reflects true business state, so re-reading cannot
// help without a fresh external event.
type InsufficientStockError struct {
	ItemID    string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d",
		e.Name, e.Available, e.Requested)
}

// RetryExhaustedError wraps the last observed conflict after the retry
// budget is spent.
type RetryExhaustedError struct {
	Attempts int
	ItemID   string
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("unable to process order after %d attempts: item %s was modified by concurrent transactions",
		e.Attempts, e.ItemID)
}
