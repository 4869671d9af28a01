package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockline/orderengine/internal/adapter/storage"
	"github.com/stockline/orderengine/internal/core/domain"
	"github.com/stockline/orderengine/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/orderengine?parseTime=true"
	itemID        = "contended-item"
	initialStock  = 20
	totalRequests = 50
	perRequest    = 1
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(50)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	store := storage.NewMySQLStore(db)
	if err := store.UpsertItem(ctx, domain.InventoryItem{
		ItemID:   itemID,
		Name:     "Contended Item",
		Price:    decimal.NewFromFloat(99.99),
		Quantity: initialStock,
	}); err != nil {
		log.Fatalf("failed to reset inventory: %v", err)
	}

	svc := service.NewOrderService(store, logger, nil, 0, 0)

	var (
		confirmed atomic.Int32
		exhausted atomic.Int32
		rejected  atomic.Int32
		failed    atomic.Int32
		wg        sync.WaitGroup
	)

	start := time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.SubmitOrder(ctx, fmt.Sprintf("user-%d@example.com", n),
				[]domain.OrderLineRequest{{ItemID: itemID, Quantity: perRequest}})
			switch err.(type) {
			case nil:
				confirmed.Add(1)
			case *service.RetryExhaustedError:
				exhausted.Add(1)
			case *service.InsufficientStockError:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	item, err := store.GetItem(ctx, itemID)
	if err != nil || item == nil {
		log.Fatalf("failed to read final inventory: %v", err)
	}

	fmt.Printf("requests=%d confirmed=%d exhausted=%d sold_out=%d failed=%d in %s\n",
		totalRequests, confirmed.Load(), exhausted.Load(), rejected.Load(), failed.Load(), elapsed)
	fmt.Printf("final stock=%d version=%d (started at %d, version 1)\n",
		item.Quantity, item.Version, initialStock)

	if item.Quantity < 0 {
		log.Fatal("OVERSOLD: final stock is negative")
	}
	if sold := initialStock - item.Quantity; sold != int(confirmed.Load())*perRequest {
		log.Fatalf("MISMATCH: %d units sold but %d orders confirmed", sold, confirmed.Load())
	}
}
