package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ltdat/inventory-ledger/internal/adapter/storage"
	"github.com/ltdat/inventory-ledger/internal/core/domain"
	"github.com/ltdat/inventory-ledger/internal/core/service"
)

func main() {
	var (
		redisAddr     = flag.String("redis", "localhost:6379", "redis address")
		productID     = flag.String("product", "loadgen-product", "product id")
		warehouseID   = flag.String("warehouse", "loadgen-wh", "warehouse id")
		initialStock  = flag.Int("stock", 20, "initial stock")
		totalRequests = flag.Int("requests", 50, "concurrent sale applications")
	)
	flag.Parse()

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	adapter := storage.NewRedisAdapter(rdb)
	if err := adapter.Restock(ctx, domain.InventoryRecord{
		ProductID:       *productID,
		WarehouseID:     *warehouseID,
		Stock:           *initialStock,
		LastStockUpdate: time.Now(),
	}); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}

	ledger := service.NewLedgerService(adapter, domain.PolicyStrict, 1024, zap.NewNop(),
		service.WithIdempotencyStore(adapter))
	defer ledger.Close()

	// Drain the update feed in background.
	go func() {
		for range ledger.Updates() {
		}
	}()

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := ledger.ApplySale(ctx, domain.SaleEvent{
				ID:          uuid.New().String(),
				OrderID:     fmt.Sprintf("order-%d", n),
				ProductID:   *productID,
				WarehouseID: *warehouseID,
				Quantity:    1,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOADGEN RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=====================================")

	wantSuccess := int32(*initialStock)
	if *totalRequests < *initialStock {
		wantSuccess = int32(*totalRequests)
	}
	if success == wantSuccess {
		fmt.Printf("PASS: exactly %d sales applied\n", wantSuccess)
	} else {
		fmt.Printf("FAIL: expected %d applied, got %d\n", wantSuccess, success)
	}

	finalStock, err := adapter.CurrentStock(ctx, *productID, *warehouseID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == *initialStock-int(wantSuccess) {
		fmt.Println("PASS: final stock equals initial minus applied")
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", *initialStock-int(wantSuccess), finalStock)
	}
}
