package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockline/orderengine/internal/core/domain"
	"github.com/stockline/orderengine/internal/metrics"
	"github.com/stockline/orderengine/internal/port"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryBase   = 10 * time.Millisecond
)

// OrderSubmitter is the single operation exposed to callers such as the
// HTTP layer.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, customerEmail string, lines []domain.OrderLineRequest) (*domain.Order, error)
}

// OrderService commits orders against versioned inventory rows. Each
// attempt reads fresh snapshots and applies all decrements in one
// transaction guarded by the version predicate; detected conflicts are
// retried with backoff up to the configured budget.
type OrderService struct {
	store       port.InventoryStore
	logger      *zap.Logger
	metrics     *metrics.OrderMetrics
	maxAttempts int
	retryBase   time.Duration
}

// NewOrderService builds an OrderService. Zero maxAttempts or retryBase
// select the defaults; m may be nil to disable metrics.
func NewOrderService(store port.InventoryStore, logger *zap.Logger, m *metrics.OrderMetrics, maxAttempts int, retryBase time.Duration) *OrderService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if retryBase <= 0 {
		retryBase = DefaultRetryBase
	}
	return &OrderService{
		store:       store,
		logger:      logger,
		metrics:     m,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
	}
}

// SubmitOrder runs the bounded retry loop around single commit attempts.
// Business rejections propagate on first occurrence; only version conflicts
// consume retries, and each retried attempt re-reads fresh snapshots.
func (s *OrderService) SubmitOrder(ctx context.Context, customerEmail string, lines []domain.OrderLineRequest) (*domain.Order, error) {
	if err := validateRequest(customerEmail, lines); err != nil {
		return nil, err
	}

	var lastConflict string
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res, err := s.processAttempt(ctx, customerEmail, lines)
		if err != nil {
			s.countOutcome("error")
			return nil, fmt.Errorf("order attempt %d: %w", attempt, err)
		}

		switch {
		case res.order != nil:
			s.countOutcome("confirmed")
			s.observeAttempts(attempt)
			s.logger.Info("order confirmed",
				zap.String("order_number", res.order.OrderNumber),
				zap.String("total", res.order.Total.StringFixed(2)),
				zap.Int("attempt", attempt),
			)
			return res.order, nil

		case res.reject != nil:
			s.countOutcome("rejected")
			return nil, res.reject

		default:
			lastConflict = res.conflictItem
			s.countConflict()
			s.logger.Warn("concurrency conflict detected",
				zap.String("item_id", res.conflictItem),
				zap.Int("attempt", attempt),
			)
			if attempt < s.maxAttempts {
				if err := s.backoff(ctx, attempt); err != nil {
					return nil, err
				}
			}
		}
	}

	s.countOutcome("exhausted")
	return nil, &RetryExhaustedError{Attempts: s.maxAttempts, ItemID: lastConflict}
}

// attemptSnapshot pairs the state observed at read time with the requested
// quantity. Snapshots live only for the duration of one attempt.
type attemptSnapshot struct {
	item      *domain.InventoryItem
	requested int
}

// processAttempt is the commit engine: exactly one attempt, no retrying.
func (s *OrderService) processAttempt(ctx context.Context, customerEmail string, lines []domain.OrderLineRequest) (attemptResult, error) {
	snapshots := make([]attemptSnapshot, 0, len(lines))
	for _, req := range lines {
		item, err := s.store.GetItem(ctx, req.ItemID)
		if err != nil {
			return attemptResult{}, fmt.Errorf("read inventory %s: %w", req.ItemID, err)
		}
		if item == nil {
			return attemptResult{reject: &NotFoundError{ItemID: req.ItemID}}, nil
		}
		if item.Quantity < req.Quantity {
			return attemptResult{reject: &InsufficientStockError{
				ItemID:    item.ItemID,
				Name:      item.Name,
				Available: item.Quantity,
				Requested: req.Quantity,
			}}, nil
		}
		snapshots = append(snapshots, attemptSnapshot{item: item, requested: req.Quantity})
	}

	total := decimal.Zero
	orderLines := make([]domain.OrderLine, 0, len(snapshots))
	updates := make([]domain.StockUpdate, 0, len(snapshots))
	for _, snap := range snapshots {
		lineTotal := snap.item.Price.Mul(decimal.NewFromInt(int64(snap.requested)))
		total = total.Add(lineTotal)
		orderLines = append(orderLines, domain.OrderLine{
			ItemID:    snap.item.ItemID,
			Quantity:  snap.requested,
			UnitPrice: snap.item.Price,
			LineTotal: lineTotal,
		})
		updates = append(updates, domain.StockUpdate{
			ItemID:          snap.item.ItemID,
			NewQuantity:     snap.item.Quantity - snap.requested,
			NewVersion:      snap.item.Version + 1,
			ExpectedVersion: snap.item.Version,
		})
	}

	now := time.Now()
	order := &domain.Order{
		ID:            uuid.NewString(),
		OrderNumber:   domain.NewOrderNumber(),
		CustomerEmail: customerEmail,
		Status:        domain.OrderStatusPending,
		Total:         total,
		Lines:         orderLines,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	counts, err := s.store.CommitOrder(ctx, order, updates)
	if err != nil {
		return attemptResult{}, fmt.Errorf("commit order %s: %w", order.OrderNumber, err)
	}

	outcome := ClassifyCommit(counts)
	if outcome.Status == StatusConflicted {
		return attemptResult{conflictItem: updates[outcome.ConflictLine].ItemID}, nil
	}

	order.Status = domain.OrderStatusConfirmed
	return attemptResult{order: order}, nil
}

// backoff waits retryBase × attempt before the next try. Purely a
// scheduling aid against repeated collision; correctness comes from the
// version predicate alone.
func (s *OrderService) backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(s.retryBase * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func validateRequest(customerEmail string, lines []domain.OrderLineRequest) error {
	if customerEmail == "" {
		return fmt.Errorf("%w: customer email is required", ErrInvalidRequest)
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: order has no lines", ErrInvalidRequest)
	}
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.ItemID == "" {
			return fmt.Errorf("%w: order line is missing an item id", ErrInvalidRequest)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: invalid quantity %d for item %s", ErrInvalidRequest, l.Quantity, l.ItemID)
		}
		if _, dup := seen[l.ItemID]; dup {
			return fmt.Errorf("%w: duplicate order line for item %s", ErrInvalidRequest, l.ItemID)
		}
		seen[l.ItemID] = struct{}{}
	}
	return nil
}

func (s *OrderService) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.Orders.WithLabelValues(outcome).Inc()
	}
}

func (s *OrderService) countConflict() {
	if s.metrics != nil {
		s.metrics.Conflicts.Inc()
	}
}

func (s *OrderService) observeAttempts(attempts int) {
	if s.metrics != nil {
		s.metrics.Attempts.Observe(float64(attempts))
	}
}
