package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/stockline/orderengine/internal/core/domain"
	"github.com/stockline/orderengine/internal/port"
)

const (
	DefaultLockTTL = 30 * time.Second

	lockKeyPrefix = "inventory_lock:"
)

// LockingOrderService wraps an OrderService with external mutual exclusion
// per inventory item, for deployments where multiple independent store
// replicas make optimistic-only control insufficient. It is additive: the
// version predicate still guards every commit underneath.
type LockingOrderService struct {
	inner  *OrderService
	locker port.Locker
	ttl    time.Duration
	logger *zap.Logger
}

// NewLockingOrderService builds the locking wrapper. A nil locker turns the
// wrapper into a passthrough, leaving optimistic control on its own.
func NewLockingOrderService(inner *OrderService, locker port.Locker, ttl time.Duration, logger *zap.Logger) *LockingOrderService {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &LockingOrderService{inner: inner, locker: locker, ttl: ttl, logger: logger}
}

// lockGrant is one successful acquisition: the key and the lease token this
// invocation set. Release hands the token back so only our own lease goes.
type lockGrant struct {
	key   string
	token string
}

// SubmitOrder acquires a leased lock for every distinct item in the request
// before delegating. If any lock is held elsewhere it fails immediately with
// ErrResourceBusy, releasing only the locks this invocation acquired. Every
// exit path releases the acquired locks, each with its own lease token.
func (s *LockingOrderService) SubmitOrder(ctx context.Context, customerEmail string, lines []domain.OrderLineRequest) (*domain.Order, error) {
	if s.locker == nil {
		return s.inner.SubmitOrder(ctx, customerEmail, lines)
	}

	keys := lockKeys(lines)
	acquired := make([]lockGrant, 0, len(keys))
	defer func() {
		// Release must run even when the request context is already gone.
		releaseCtx := context.WithoutCancel(ctx)
		for _, g := range acquired {
			if err := s.locker.Release(releaseCtx, g.key, g.token); err != nil {
				s.logger.Error("lock release failed", zap.String("key", g.key), zap.Error(err))
			}
		}
	}()

	for _, key := range keys {
		token, ok, err := s.locker.AcquireIfAbsent(ctx, key, s.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if !ok {
			return nil, ErrResourceBusy
		}
		acquired = append(acquired, lockGrant{key: key, token: token})
	}

	return s.inner.SubmitOrder(ctx, customerEmail, lines)
}

// lockKeys returns the sorted, deduplicated lock keys for a request. Sorting
// gives all contenders the same acquisition order.
func lockKeys(lines []domain.OrderLineRequest) []string {
	seen := make(map[string]struct{}, len(lines))
	keys := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, dup := seen[l.ItemID]; dup {
			continue
		}
		seen[l.ItemID] = struct{}{}
		keys = append(keys, lockKeyPrefix+l.ItemID)
	}
	sort.Strings(keys)
	return keys
}
