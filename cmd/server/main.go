package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockline/orderengine/internal/adapter/handler"
	"github.com/stockline/orderengine/internal/adapter/storage"
	"github.com/stockline/orderengine/internal/config"
	"github.com/stockline/orderengine/internal/core/domain"
	"github.com/stockline/orderengine/internal/core/service"
	"github.com/stockline/orderengine/internal/metrics"
	"github.com/stockline/orderengine/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	store := storage.NewMySQLStore(db)

	if cfg.Seed {
		if err := seedInventory(ctx, store); err != nil {
			logger.Fatal("failed to seed inventory", zap.Error(err))
		}
		logger.Info("seeded demo inventory")
	}

	// Initialize the optional lock coordination service
	var (
		rdb    *redis.Client
		locker port.Locker
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		locker = storage.NewRedisLocker(rdb)
		logger.Info("connected to redis, distributed locks enabled")
	} else {
		logger.Info("no redis configured, relying on optimistic control only")
	}

	// Initialize services
	orderMetrics := metrics.NewOrderMetrics()
	orderService := service.NewOrderService(store, logger, orderMetrics, cfg.MaxAttempts, cfg.RetryBase)
	submitter := service.NewLockingOrderService(orderService, locker, cfg.LockTTL, logger)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(submitter, store, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/orders", httpHandler.SubmitOrder)
	mux.HandleFunc("/api/orders/", httpHandler.GetOrder)
	mux.HandleFunc("/api/inventory", httpHandler.ListInventory)
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	logger.Info("connections closed")
}

func seedInventory(ctx context.Context, store port.InventoryStore) error {
	items := []domain.InventoryItem{
		{ItemID: "laptop-pro", Name: "Laptop Pro", Price: decimal.NewFromFloat(1299.99), Quantity: 10},
		{ItemID: "wireless-mouse", Name: "Wireless Mouse", Price: decimal.NewFromFloat(29.99), Quantity: 50},
		{ItemID: "usb-c-hub", Name: "USB-C Hub", Price: decimal.NewFromFloat(49.99), Quantity: 25},
	}
	for _, item := range items {
		if err := store.UpsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
