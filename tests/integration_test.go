package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/stockenza/stockenza/internal/adapter/handler"
	"github.com/stockenza/stockenza/internal/adapter/storage"
	"github.com/stockenza/stockenza/internal/core/domain"
	"github.com/stockenza/stockenza/internal/core/service"
)

type testEnv struct {
	redis     *redis.Client
	mysql     *sql.DB
	cache     *storage.RedisAdapter
	inventory *storage.MySQLInventory
	orders    *storage.MySQLOrders
	cleanup   func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/stockenza?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ensureSchema(t, db)

	return &testEnv{
		redis:     rdb,
		mysql:     db,
		cache:     storage.NewRedisAdapter(rdb),
		inventory: storage.NewMySQLInventory(db),
		orders:    storage.NewMySQLOrders(db),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func ensureSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id            VARCHAR(36) PRIMARY KEY,
			owner_id      VARCHAR(36) NOT NULL,
			name          VARCHAR(255) NOT NULL,
			sku           VARCHAR(64) NOT NULL DEFAULT '',
			category      VARCHAR(64) NOT NULL DEFAULT '',
			quantity      INT NOT NULL DEFAULT 0,
			cost_price    DECIMAL(12,2) NOT NULL DEFAULT 0,
			selling_price DECIMAL(12,2) NOT NULL DEFAULT 0,
			image_url     VARCHAR(512) NOT NULL DEFAULT '',
			created_at    DATETIME(6) NOT NULL,
			updated_at    DATETIME(6) NOT NULL,
			KEY idx_inventory_owner (owner_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           VARCHAR(36) PRIMARY KEY,
			owner_id     VARCHAR(36) NOT NULL,
			total_amount DECIMAL(12,2) NOT NULL,
			created_at   DATETIME(6) NOT NULL,
			KEY idx_orders_owner_created (owner_id, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id   VARCHAR(36) NOT NULL,
			product_id VARCHAR(36) NOT NULL,
			qty        INT NOT NULL,
			KEY idx_order_items_order (order_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
}

func seedItem(t *testing.T, env *testEnv, owner string, qty int, sell string) *domain.InventoryItem {
	t.Helper()
	sellPrice, err := decimal.NewFromString(sell)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.InventoryItem{
		ID:           uuid.New().String(),
		OwnerID:      owner,
		Name:         "integration item",
		Quantity:     qty,
		CostPrice:    decimal.NewFromInt(4),
		SellingPrice: sellPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := env.inventory.Insert(context.Background(), item); err != nil {
		t.Fatalf("seed item failed: %v", err)
	}
	t.Cleanup(func() { env.inventory.Delete(context.Background(), item.ID) })
	return item
}

func TestIntegration_ConcurrentOrderPlacement(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	owner := "it-owner-" + uuid.New().String()
	initialStock := 10
	totalRequests := 20

	item := seedItem(t, env, owner, initialStock, "9.99")
	svc := service.NewOrderService(env.inventory, env.orders, env.cache)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, owner, uuid.New().String(), []domain.OrderItem{
				{ProductID: item.ID, Qty: 1},
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	final, err := env.inventory.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if final.Quantity != 0 {
		t.Errorf("expected stock 0, got %d", final.Quantity)
	}

	orders, err := env.orders.ListByOwner(ctx, owner, domain.DateRange{})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != initialStock {
		t.Errorf("expected %d committed orders, got %d", initialStock, len(orders))
	}
	for _, o := range orders {
		if !o.TotalAmount.Equal(decimal.RequireFromString("9.99")) {
			t.Errorf("expected total 9.99, got %s", o.TotalAmount)
		}
	}

	env.mysql.ExecContext(ctx, `DELETE FROM order_items WHERE product_id = ?`, item.ID)
	env.mysql.ExecContext(ctx, `DELETE FROM orders WHERE owner_id = ?`, owner)
}

func TestIntegration_FailedRequestLeavesStockUntouched(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	owner := "it-owner-" + uuid.New().String()

	a := seedItem(t, env, owner, 5, "2.00")
	b := seedItem(t, env, owner, 3, "2.00")
	svc := service.NewOrderService(env.inventory, env.orders, env.cache)

	_, err := svc.PlaceOrder(ctx, owner, "", []domain.OrderItem{
		{ProductID: a.ID, Qty: 2},
		{ProductID: b.ID, Qty: 10},
	})
	if err == nil {
		t.Fatal("expected placement to fail")
	}

	gotA, _ := env.inventory.FindByID(ctx, a.ID)
	gotB, _ := env.inventory.FindByID(ctx, b.ID)
	if gotA.Quantity != 5 {
		t.Errorf("expected a stock unchanged at 5, got %d", gotA.Quantity)
	}
	if gotB.Quantity != 3 {
		t.Errorf("expected b stock unchanged at 3, got %d", gotB.Quantity)
	}

	orders, err := env.orders.ListByOwner(ctx, owner, domain.DateRange{})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestIntegration_LastUnitRace(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	owner := "it-owner-" + uuid.New().String()

	item := seedItem(t, env, owner, 1, "9.99")
	svc := service.NewOrderService(env.inventory, env.orders, env.cache)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, owner, uuid.New().String(), []domain.OrderItem{
				{ProductID: item.ID, Qty: 1},
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly one winner for the last unit, got %d", successCount.Load())
	}

	final, _ := env.inventory.FindByID(ctx, item.ID)
	if final.Quantity != 0 {
		t.Errorf("expected stock 0, got %d", final.Quantity)
	}

	env.mysql.ExecContext(ctx, `DELETE FROM order_items WHERE product_id = ?`, item.ID)
	env.mysql.ExecContext(ctx, `DELETE FROM orders WHERE owner_id = ?`, owner)
}

func TestIntegration_HTTPEndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	owner := "it-owner-" + uuid.New().String()
	token := "it-token-" + uuid.New().String()

	if err := env.cache.PutSession(ctx, token, owner, time.Minute); err != nil {
		t.Fatalf("put session failed: %v", err)
	}

	server := handler.NewServer(
		service.NewInventoryService(env.inventory),
		service.NewOrderService(env.inventory, env.orders, env.cache),
		service.NewReportService(env.inventory, env.orders),
		env.cache,
	)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		server.Engine().ServeHTTP(w, req)
		return w
	}

	// Create an item over HTTP
	w := do(http.MethodPost, "/api/inventory", map[string]any{
		"name": "HTTP Widget", "quantity": 5, "costPrice": "4.00", "sellingPrice": "9.99",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create item code %d: %s", w.Code, w.Body)
	}
	var item domain.InventoryItem
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { env.inventory.Delete(ctx, item.ID) })

	// Place an order over HTTP
	w = do(http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"productId": item.ID, "qty": 2}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("place order code %d: %s", w.Code, w.Body)
	}
	var order domain.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatal(err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("19.98")) {
		t.Errorf("expected total 19.98, got %s", order.TotalAmount)
	}
	t.Cleanup(func() {
		env.mysql.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, order.ID)
		env.mysql.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, order.ID)
	})

	// Summary reflects the sale
	w = do(http.MethodGet, "/api/reports/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary code %d: %s", w.Code, w.Body)
	}
	var summary domain.SummaryReport
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.OrderCount != 1 {
		t.Errorf("expected order count 1, got %d", summary.OrderCount)
	}
	if !summary.TotalRevenue.Equal(decimal.RequireFromString("19.98")) {
		t.Errorf("expected revenue 19.98, got %s", summary.TotalRevenue)
	}
}
