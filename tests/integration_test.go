package tests

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockline/orderengine/internal/adapter/storage"
	"github.com/stockline/orderengine/internal/core/domain"
	"github.com/stockline/orderengine/internal/core/service"
)

// schemaStatements loads the DDL from schema.sql so the tables the tests run
// against carry the same constraints as production, foreign keys included.
func schemaStatements(t *testing.T) []string {
	ddl, err := os.ReadFile(filepath.Join("..", "schema.sql"))
	if err != nil {
		t.Fatalf("failed to read schema.sql: %v", err)
	}
	var stmts []string
	for _, stmt := range strings.Split(string(ddl), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

type testEnv struct {
	mysql   *sql.DB
	store   *storage.MySQLStore
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/orderengine?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ctx := context.Background()
	for _, stmt := range schemaStatements(t) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}

	return &testEnv{
		mysql:   db,
		store:   storage.NewMySQLStore(db),
		cleanup: func() { db.Close() },
	}
}

func (env *testEnv) resetItem(t *testing.T, itemID string, quantity int) {
	ctx := context.Background()
	env.mysql.ExecContext(ctx, `DELETE FROM order_lines WHERE item_id = ?`, itemID)
	err := env.store.UpsertItem(ctx, domain.InventoryItem{
		ItemID:   itemID,
		Name:     "Integration Item",
		Price:    decimal.NewFromFloat(19.99),
		Quantity: quantity,
	})
	if err != nil {
		t.Fatalf("failed to reset item: %v", err)
	}
}

func TestIntegration_ConcurrentCommitsNeverOversell(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "integration-contended"
	initialStock := 10
	totalRequests := 20

	env.resetItem(t, itemID, initialStock)

	svc := service.NewOrderService(env.store, zap.NewNop(), nil, 5, 0)

	var confirmed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.SubmitOrder(ctx, fmt.Sprintf("user-%d@example.com", n),
				[]domain.OrderLineRequest{{ItemID: itemID, Quantity: 1}})
			if err == nil {
				confirmed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	item, err := env.store.GetItem(ctx, itemID)
	if err != nil || item == nil {
		t.Fatalf("failed to read final inventory: %v", err)
	}

	if item.Quantity < 0 {
		t.Fatalf("stock oversold: quantity %d", item.Quantity)
	}
	if sold := initialStock - item.Quantity; sold != int(confirmed.Load()) {
		t.Errorf("%d units sold but %d orders confirmed", sold, confirmed.Load())
	}
	if want := 1 + int(confirmed.Load()); item.Version != want {
		t.Errorf("expected version %d after %d commits, got %d", want, confirmed.Load(), item.Version)
	}

	var pending int
	env.mysql.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		WHERE l.item_id = ? AND o.status = ?`, itemID, domain.OrderStatusPending,
	).Scan(&pending)
	if pending != 0 {
		t.Errorf("%d pending orders survived their attempts", pending)
	}
}

func TestIntegration_ConfirmedOrderPersistsWithLines(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "integration-single"
	env.resetItem(t, itemID, 5)

	svc := service.NewOrderService(env.store, zap.NewNop(), nil, 0, 0)
	order, err := svc.SubmitOrder(ctx, "alice@example.com",
		[]domain.OrderLineRequest{{ItemID: itemID, Quantity: 2}})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}

	stored, err := env.store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if stored == nil {
		t.Fatal("confirmed order not found in store")
	}
	if stored.Status != domain.OrderStatusConfirmed {
		t.Errorf("expected confirmed status, got %s", stored.Status)
	}
	if got := stored.Total.StringFixed(2); got != "39.98" {
		t.Errorf("expected total 39.98, got %s", got)
	}
	if len(stored.Lines) != 1 || stored.Lines[0].Quantity != 2 {
		t.Errorf("unexpected stored lines: %+v", stored.Lines)
	}
}

func TestIntegration_LockingFlowReleasesLocks(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer rdb.Close()

	itemID := "integration-locked"
	env.resetItem(t, itemID, 5)
	lockKey := "inventory_lock:" + itemID
	rdb.Del(ctx, lockKey)

	inner := service.NewOrderService(env.store, zap.NewNop(), nil, 0, 0)
	svc := service.NewLockingOrderService(inner, storage.NewRedisLocker(rdb), 0, zap.NewNop())

	order, err := svc.SubmitOrder(ctx, "alice@example.com",
		[]domain.OrderLineRequest{{ItemID: itemID, Quantity: 1}})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Errorf("expected confirmed order, got %s", order.Status)
	}

	if exists, _ := rdb.Exists(ctx, lockKey).Result(); exists != 0 {
		t.Error("lock key still present after the order completed")
	}
}
