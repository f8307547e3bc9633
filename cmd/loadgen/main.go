package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/stockenza/stockenza/internal/adapter/storage"
	"github.com/stockenza/stockenza/internal/core/domain"
	"github.com/stockenza/stockenza/internal/core/service"
)

// Fires concurrent order placements at a single item against live MySQL and
// Redis, then checks that exactly initialStock orders committed and the stock
// landed on zero. A quick way to watch the conditional-decrement guard hold
// under real contention.

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	mysqlDSN := getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/stockenza?parseTime=true")
	redisAddr := getenv("REDIS_ADDR", "localhost:6379")

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	inventoryRepo := storage.NewMySQLInventory(db)
	orderRepo := storage.NewMySQLOrders(db)
	cache := storage.NewRedisAdapter(rdb)
	orderService := service.NewOrderService(inventoryRepo, orderRepo, cache)

	// Seed the contended item
	owner := "loadgen-" + uuid.New().String()
	now := time.Now().UTC()
	item := &domain.InventoryItem{
		ID:           uuid.New().String(),
		OwnerID:      owner,
		Name:         "loadgen item",
		Quantity:     initialStock,
		CostPrice:    decimal.NewFromFloat(4.00),
		SellingPrice: decimal.NewFromFloat(9.99),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := inventoryRepo.Insert(ctx, item); err != nil {
		log.Fatalf("failed to seed item: %v", err)
	}
	log.Printf("seeded item %s with stock %d", item.ID, initialStock)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := orderService.PlaceOrder(ctx, owner, uuid.New().String(), []domain.OrderItem{
				{ProductID: item.ID, Qty: 1},
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	final, err := inventoryRepo.FindByID(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read back item: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", final.Quantity)

	if final.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", final.Quantity)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
