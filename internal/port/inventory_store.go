package port

import (
	"context"

	"github.com/stockline/orderengine/internal/core/domain"
)

type InventoryStore interface {
	// GetItem retrieves one inventory item by its identifier.
	// Returns (nil, nil) when the item does not exist.
	GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error)

	// CommitOrder runs one transactional commit attempt: it inserts the
	// pending order with its lines, then applies each conditional stock
	// update in sequence, collecting per-line affected-row counts. It stops
	// at the first update that affects zero rows and rolls the whole
	// transaction back; only when every count is 1 does it confirm the
	// order and commit. The returned counts are the raw material for
	// conflict classification; a non-nil error means an infrastructure
	// failure, never a version conflict.
	CommitOrder(ctx context.Context, order *domain.Order, updates []domain.StockUpdate) ([]int64, error)

	// UpsertItem writes an item outside the commit protocol, resetting its
	// version. Used for seeding and admin writes only.
	UpsertItem(ctx context.Context, item domain.InventoryItem) error

	// ListItems returns all inventory items ordered by identifier.
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)

	// GetOrder retrieves an order with its lines.
	// Returns (nil, nil) when the order does not exist.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}
